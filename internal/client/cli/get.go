package cli

import (
	"errors"
	"fmt"

	"github.com/iudanet/shiftsync/internal/client/iocli"
	"github.com/iudanet/shiftsync/internal/client/state"
)

// RunGet печатает полные данные записи из локального зеркала
func RunGet(io iocli.IO, mirror *state.Mirror, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing employee ID. Usage: shiftsync get <id>")
	}

	employee, err := mirror.Get(args[0])
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return fmt.Errorf("employee %s not found in local mirror. Run 'shiftsync sync' first", args[0])
		}
		return fmt.Errorf("failed to get employee: %w", err)
	}

	return render(io, employeeTmpl, employee)
}
