package cli

import (
	"context"
	"flag"
	"fmt"

	clientapi "github.com/iudanet/shiftsync/internal/client/api"
	"github.com/iudanet/shiftsync/internal/client/iocli"
	"github.com/iudanet/shiftsync/internal/client/state"
	"github.com/iudanet/shiftsync/pkg/api"
)

// RunCreate создает запись ростера на сервере и кладет подтвержденный
// снимок в локальное зеркало
func RunCreate(ctx context.Context, io iocli.IO, serverURL string, mirror *state.Mirror, args []string) error {
	io.Println("=== Create Employee ===")
	io.Println()

	employee, err := gatherEmployee(io, args)
	if err != nil {
		return err
	}

	client, err := clientapi.Dial(ctx, serverURL, "")
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer func() { _ = client.Close() }()

	event, err := client.CreateEmployee(*employee)
	if err != nil {
		return fmt.Errorf("failed to create employee: %w", err)
	}
	if event.Employee == nil {
		return fmt.Errorf("server acknowledged create without employee snapshot")
	}

	if err := mirror.Upsert(*event.Employee); err != nil {
		return fmt.Errorf("failed to update local mirror: %w", err)
	}

	io.Println()
	io.Println("✓ Employee created successfully!")
	io.Printf("ID:      %s\n", event.Employee.ID)
	io.Printf("Name:    %s\n", event.Employee.Name)
	if event.Employee.Role != "" {
		io.Printf("Role:    %s\n", event.Employee.Role)
	}
	if event.Employee.Period != "" {
		io.Printf("Period:  %s\n", event.Employee.Period)
	}
	io.Printf("Version: %d\n", event.Employee.Version)

	return nil
}

// gatherEmployee собирает поля новой записи из флагов. Недостающие
// имя, роль и период запрашиваются интерактивно; без терминала
// отсутствие имени — ошибка, остальное остается пустым.
func gatherEmployee(io iocli.IO, args []string) (*api.Employee, error) {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(io)
	id := fs.String("id", "", "employee ID (server assigns one when empty)")
	name := fs.String("name", "", "employee name")
	role := fs.String("role", "", "employee role, e.g. cashier")
	empType := fs.String("type", "full_time", "employment type: full_time, part_time or contract")
	period := fs.String("period", "", "scheduling period, e.g. 2026-W35")
	hours := fs.Int("hours", 40, "weekly hours")
	notes := fs.String("notes", "", "free-form notes")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *name == "" {
		if !io.Interactive() {
			return nil, fmt.Errorf("missing employee name. Usage: shiftsync create -name NAME [-role ROLE] [-period 2026-W35]")
		}
		input, err := io.ReadInput("Name (e.g., 'Alice Barnes'): ")
		if err != nil {
			return nil, fmt.Errorf("failed to read name: %w", err)
		}
		if input == "" {
			return nil, fmt.Errorf("name cannot be empty")
		}
		*name = input
	}

	if io.Interactive() {
		if *role == "" {
			input, err := io.ReadInput("Role (e.g., 'cashier', 'shift_lead'): ")
			if err != nil {
				return nil, fmt.Errorf("failed to read role: %w", err)
			}
			*role = input
		}
		if *period == "" {
			input, err := io.ReadInput("Period (e.g., '2026-W35', optional): ")
			if err != nil {
				return nil, fmt.Errorf("failed to read period: %w", err)
			}
			*period = input
		}
	}

	return &api.Employee{
		ID:             *id,
		Name:           *name,
		Role:           *role,
		EmploymentType: *empType,
		Period:         *period,
		Notes:          *notes,
		WeeklyHours:    *hours,
	}, nil
}
