package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"

	clientapi "github.com/iudanet/shiftsync/internal/client/api"
	"github.com/iudanet/shiftsync/internal/client/iocli"
	"github.com/iudanet/shiftsync/internal/client/state"
)

// RunDelete удаляет запись ростера на сервере. Перед удалением
// показывает, что именно уходит, и спрашивает подтверждение;
// флаг -yes пропускает вопрос.
func RunDelete(ctx context.Context, io iocli.IO, serverURL string, mirror *state.Mirror, args []string) error {
	if len(args) == 0 || args[0] == "-yes" {
		return fmt.Errorf("missing employee ID. Usage: shiftsync delete <id> [-yes]")
	}
	id := args[0]

	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(io)
	yes := fs.Bool("yes", false, "delete without confirmation")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	io.Println("=== Delete Employee ===")
	io.Println()

	local, err := mirror.Get(id)
	switch {
	case err == nil:
		io.Println("About to delete:")
		io.Printf("  ID:     %s\n", local.ID)
		io.Printf("  Name:   %s\n", local.Name)
		if local.Role != "" {
			io.Printf("  Role:   %s\n", local.Role)
		}
		if local.Period != "" {
			io.Printf("  Period: %s\n", local.Period)
		}
		io.Println()
	case errors.Is(err, state.ErrNotFound):
		io.Printf("Employee %s is not in the local mirror, deleting on the server only.\n", id)
		io.Println()
	default:
		return err
	}

	if !*yes {
		if !io.Interactive() {
			return fmt.Errorf("confirmation required. Re-run with -yes to delete without a prompt")
		}
		confirm, err := io.ReadInput("Are you sure you want to delete this employee? (yes/no): ")
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if confirm != "yes" && confirm != "y" {
			io.Println()
			io.Println("Deletion cancelled.")
			return nil
		}
	}

	client, err := clientapi.Dial(ctx, serverURL, "")
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer func() { _ = client.Close() }()

	event, err := client.DeleteEmployee(id)
	if err != nil {
		return fmt.Errorf("failed to delete employee: %w", err)
	}

	if err := mirror.Delete(id); err != nil {
		return fmt.Errorf("failed to update local mirror: %w", err)
	}

	io.Println()
	io.Println("✓ Employee deleted successfully!")
	io.Printf("Last version: %d\n", event.Version)

	return nil
}
