package cli

import (
	"fmt"

	"github.com/iudanet/shiftsync/internal/client/iocli"
	"github.com/iudanet/shiftsync/internal/client/state"
	"github.com/iudanet/shiftsync/pkg/api"
)

type rosterView struct {
	Period    string
	Employees []api.Employee
}

// RunList печатает записи локального зеркала, без аргумента — все периоды
func RunList(io iocli.IO, mirror *state.Mirror, args []string) error {
	var period string
	if len(args) > 0 {
		period = args[0]
	}

	employees, err := mirror.List(period)
	if err != nil {
		return fmt.Errorf("failed to list employees: %w", err)
	}

	return render(io, rosterListTmpl, rosterView{Period: period, Employees: employees})
}
