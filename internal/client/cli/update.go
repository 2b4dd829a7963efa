package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	clientapi "github.com/iudanet/shiftsync/internal/client/api"
	"github.com/iudanet/shiftsync/internal/client/iocli"
	"github.com/iudanet/shiftsync/internal/client/state"
	"github.com/iudanet/shiftsync/pkg/api"
)

// RunUpdate отправляет разреженный патч записи. База optimistic lock —
// версия из локального зеркала; конфликт, который сервер не стал
// разрешать сам, доигрывается диалогом с пользователем.
func RunUpdate(ctx context.Context, io iocli.IO, serverURL string, mirror *state.Mirror, args []string) error {
	io.Println("=== Update Employee ===")
	io.Println()

	id, patch, expected, err := parseUpdateArgs(io, args)
	if err != nil {
		return err
	}

	if expected < 0 {
		// Записи, которой нет в зеркале, идут без optimistic lock
		local, err := mirror.Get(id)
		switch {
		case err == nil:
			expected = local.Version
		case errors.Is(err, state.ErrNotFound):
			expected = 0
		default:
			return err
		}
	}

	client, err := clientapi.Dial(ctx, serverURL, "")
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer func() { _ = client.Close() }()

	event, err := client.UpdateEmployee(id, patch, expected)
	if err != nil {
		var serverErr *clientapi.ServerError
		if errors.As(err, &serverErr) && serverErr.Code == api.CodeUserChoiceRequired && serverErr.Conflict != nil {
			return resolveConflictInteractively(io, client, mirror, id, patch, serverErr.Conflict)
		}
		return fmt.Errorf("failed to update employee: %w", err)
	}

	return finishUpdate(io, mirror, event)
}

// parseUpdateArgs разбирает id и флаги патча. В патч попадают только
// явно переданные флаги: fs.Visit обходит установленные.
// expected-version -1 означает "взять версию из зеркала".
func parseUpdateArgs(io iocli.IO, args []string) (string, api.EmployeePatch, int64, error) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return "", api.EmployeePatch{}, 0, fmt.Errorf("missing employee ID. Usage: shiftsync update <id> [-name NAME] [-role ROLE] [-type TYPE] [-period PERIOD] [-hours N] [-notes TEXT]")
	}
	id := args[0]

	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	fs.SetOutput(io)
	name := fs.String("name", "", "employee name")
	role := fs.String("role", "", "employee role, e.g. cashier")
	empType := fs.String("type", "", "employment type: full_time, part_time or contract")
	period := fs.String("period", "", "scheduling period, e.g. 2026-W35")
	hours := fs.Int("hours", 0, "weekly hours")
	notes := fs.String("notes", "", "free-form notes")
	expected := fs.Int64("expected-version", -1, "version this update is based on (0 disables the check)")

	if err := fs.Parse(args[1:]); err != nil {
		return "", api.EmployeePatch{}, 0, err
	}

	var patch api.EmployeePatch
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			patch.Name = name
		case "role":
			patch.Role = role
		case "type":
			patch.EmploymentType = empType
		case "period":
			patch.Period = period
		case "hours":
			patch.WeeklyHours = hours
		case "notes":
			patch.Notes = notes
		}
	})

	if patch == (api.EmployeePatch{}) {
		return "", api.EmployeePatch{}, 0, fmt.Errorf("nothing to update. Pass at least one field flag, e.g. -hours 32")
	}

	return id, patch, *expected, nil
}

// resolveConflictInteractively доигрывает update после отказа сервера
// разрешать конфликт самостоятельно: пользователь выбирает, чья версия
// остается. Выбор локальной повторяет патч поверх версии сервера;
// новая параллельная правка за это время дает новый конфликт и новый
// вопрос.
func resolveConflictInteractively(io iocli.IO, client *clientapi.Client, mirror *state.Mirror, id string, patch api.EmployeePatch, conflict *api.ConflictInfo) error {
	printConflict(io, conflict)

	if !io.Interactive() {
		return fmt.Errorf("concurrent edit detected. Re-run with -expected-version 0 to overwrite, or run 'shiftsync sync' to pull the server version")
	}

	for {
		choice, err := io.ReadInput("Keep which version? [l]ocal changes / [r]emote version: ")
		if err != nil {
			return fmt.Errorf("failed to read choice: %w", err)
		}

		switch strings.ToLower(choice) {
		case "l", "local":
			if conflict.Remote == nil {
				return fmt.Errorf("conflict report has no remote snapshot")
			}
			event, err := client.UpdateEmployee(id, patch, conflict.Remote.Version)
			if err != nil {
				var serverErr *clientapi.ServerError
				if errors.As(err, &serverErr) && serverErr.Code == api.CodeUserChoiceRequired && serverErr.Conflict != nil {
					conflict = serverErr.Conflict
					printConflict(io, conflict)
					continue
				}
				return fmt.Errorf("failed to update employee: %w", err)
			}
			return finishUpdate(io, mirror, event)
		case "r", "remote":
			if conflict.Remote == nil {
				return fmt.Errorf("conflict report has no remote snapshot")
			}
			if err := mirror.Upsert(*conflict.Remote); err != nil {
				return fmt.Errorf("failed to update local mirror: %w", err)
			}
			io.Println()
			io.Println("Remote version kept, local changes discarded.")
			return nil
		default:
			io.Println("Please answer 'l' or 'r'.")
		}
	}
}

func printConflict(io iocli.IO, conflict *api.ConflictInfo) {
	io.Println()
	io.Println("=== Concurrent Edit Detected ===")
	io.Println()
	io.Println("Another client changed this employee while you were editing.")
	if conflict.Remote != nil {
		io.Printf("Server version is now %d.\n", conflict.Remote.Version)
	}
	if len(conflict.Conflicts) > 0 {
		io.Println()
		io.Println("Conflicting fields:")
		for _, fc := range conflict.Conflicts {
			io.Printf("  %s: yours %q, server %q\n", fc.Field, fc.Local, fc.Remote)
		}
	}
	io.Println()
}

// finishUpdate кладет подтвержденный снимок в зеркало и печатает итог,
// включая отчет резолвера, если сервер разрешал конфликт сам
func finishUpdate(io iocli.IO, mirror *state.Mirror, event *api.EntityEvent) error {
	if event.Employee == nil {
		return fmt.Errorf("server acknowledged update without employee snapshot")
	}

	if err := mirror.Upsert(*event.Employee); err != nil {
		return fmt.Errorf("failed to update local mirror: %w", err)
	}

	io.Println()
	io.Println("✓ Employee updated successfully!")
	io.Printf("ID:      %s\n", event.Employee.ID)
	io.Printf("Version: %d\n", event.Employee.Version)

	if event.Conflict != nil {
		io.Println()
		io.Printf("Concurrent edit resolved by server (%s", event.Conflict.Strategy)
		if event.Conflict.Confidence > 0 {
			io.Printf(", confidence %.2f", event.Conflict.Confidence)
		}
		io.Println("):")
		if event.Conflict.Rationale != "" {
			io.Printf("  %s\n", event.Conflict.Rationale)
		}
		for _, fc := range event.Conflict.Conflicts {
			io.Printf("  %s: yours %q, server %q -> %s\n", fc.Field, fc.Local, fc.Remote, fc.Resolution)
		}
	}

	return nil
}
