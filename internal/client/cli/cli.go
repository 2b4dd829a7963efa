// Package cli реализует команды терминального клиента: локальные
// (list, get, violations — читают зеркало) и серверные (sync, create,
// update, delete, watch — устанавливают WebSocket-сессию). Каждая
// команда — отдельная функция RunXxx, принимающая свои зависимости.
package cli

import (
	"fmt"
	"text/template"

	"github.com/iudanet/shiftsync/internal/client/iocli"
)

func PrintUsage() {
	fmt.Println("ShiftSync Client")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  shiftsync [OPTIONS] COMMAND [ARGS]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version        Show version information")
	fmt.Println("  --server URL     Server URL (default: http://localhost:8080)")
	fmt.Println("  --db PATH        Path to local mirror database (default: shiftsync-client.db)")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  sync                     Pull roster changes from the server")
	fmt.Println("  list [period]            List employees from the local mirror")
	fmt.Println("  get <id>                 Show full employee details")
	fmt.Println("  create [flags]           Create an employee (prompts for missing fields)")
	fmt.Println("  update <id> [flags]      Update employee fields")
	fmt.Println("  delete <id> [-yes]       Delete an employee")
	fmt.Println("  watch [topics...]        Stream live roster events")
	fmt.Println("  violations [period]      Check the local mirror against roster rules")
	fmt.Println()
	fmt.Println("Create/update flags:")
	fmt.Println("  -name NAME, -role ROLE, -type full_time|part_time|contract,")
	fmt.Println("  -period 2026-W35, -hours N, -notes TEXT")
	fmt.Println("  update only: -expected-version N (0 forces the update)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  shiftsync sync")
	fmt.Println("  shiftsync list 2026-W35")
	fmt.Println("  shiftsync create -name 'Alice Barnes' -role cashier -period 2026-W35")
	fmt.Println("  shiftsync update emp-1 -hours 32")
	fmt.Println("  shiftsync delete emp-1 -yes")
	fmt.Println("  shiftsync watch")
	fmt.Println("  shiftsync --server https://roster.example.com sync")
}

// render исполняет шаблон вывода в терминал команды
func render(io iocli.IO, tmpl *template.Template, data any) error {
	if err := tmpl.Execute(io, data); err != nil {
		return fmt.Errorf("failed to render output: %w", err)
	}
	return nil
}
