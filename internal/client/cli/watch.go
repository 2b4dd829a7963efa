package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	clientapi "github.com/iudanet/shiftsync/internal/client/api"
	"github.com/iudanet/shiftsync/internal/client/iocli"
	"github.com/iudanet/shiftsync/internal/client/state"
	"github.com/iudanet/shiftsync/pkg/api"
)

// RunWatch подписывается на широковещательные топики и печатает события
// по мере поступления, отражая их в локальном зеркале. Без аргументов
// слушает все топики. Останавливается по Ctrl+C.
func RunWatch(ctx context.Context, io iocli.IO, serverURL string, mirror *state.Mirror, args []string) error {
	topics := args
	if len(topics) == 0 {
		topics = []string{
			api.TopicEmployeesCreated,
			api.TopicEmployeesUpdated,
			api.TopicEmployeesDeleted,
			api.TopicSystemAlerts,
		}
	}

	client, err := clientapi.Dial(ctx, serverURL, "")
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer func() { _ = client.Close() }()

	if err := client.Subscribe(topics...); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	// Сначала догоняем сервер, чтобы события ложились на свежее зеркало
	since, err := mirror.LastVersion()
	if err != nil {
		return err
	}
	resp, err := client.Sync(since)
	if err != nil {
		return fmt.Errorf("failed to sync before watching: %w", err)
	}
	if _, err := applySyncResponse(mirror, resp); err != nil {
		return fmt.Errorf("failed to apply server changes: %w", err)
	}

	io.Printf("Watching %s (version %d). Press Ctrl+C to stop.\n",
		strings.Join(topics, ", "), resp.CurrentVersion)
	io.Println()

	err = client.Listen(ctx, func(env *api.Envelope) {
		printEvent(io, mirror, env)
	})
	if errors.Is(err, context.Canceled) {
		io.Println()
		io.Println("Watch stopped.")
		return nil
	}
	return err
}

// printEvent печатает одно событие и отражает его в зеркале. Ошибки
// зеркала наблюдение не прерывают — следующий sync все выровняет.
func printEvent(io iocli.IO, mirror *state.Mirror, env *api.Envelope) {
	now := time.Now().Format("15:04:05")

	switch env.Type {
	case api.MsgEntityCreated, api.MsgEntityUpdated:
		var event api.EntityEvent
		if err := env.Decode(&event); err != nil {
			io.Printf("[%s] undecodable %s: %v\n", now, env.Type, err)
			return
		}
		if event.Employee == nil {
			return
		}
		_ = mirror.Upsert(*event.Employee)

		verb := "created"
		if env.Type == api.MsgEntityUpdated {
			verb = "updated"
		}
		role := event.Employee.Role
		if role == "" {
			role = "no role"
		}
		io.Printf("[%s] %s %s: %s (%s, v%d) by %s\n",
			now, verb, event.Employee.ID, event.Employee.Name, role,
			event.Employee.Version, event.ClientID)
		if event.Conflict != nil {
			io.Printf("           concurrent edit resolved (%s)\n", event.Conflict.Strategy)
		}

	case api.MsgEntityDeleted:
		var event api.EntityEvent
		if err := env.Decode(&event); err != nil {
			io.Printf("[%s] undecodable %s: %v\n", now, env.Type, err)
			return
		}
		_ = mirror.Delete(event.ID)
		io.Printf("[%s] deleted %s by %s\n", now, event.ID, event.ClientID)

	case api.MsgSystemAlert:
		var alert api.SystemAlert
		if err := env.Decode(&alert); err != nil {
			io.Printf("[%s] undecodable %s: %v\n", now, env.Type, err)
			return
		}
		line := fmt.Sprintf("[%s] alert (%s): %s", now, alert.Category, alert.Message)
		if alert.Period != "" {
			line += fmt.Sprintf(" [period %s]", alert.Period)
		}
		if alert.Applied > 0 || alert.Conflicts > 0 {
			line += fmt.Sprintf(" (applied %d, conflicts %d)", alert.Applied, alert.Conflicts)
		}
		io.Println(line)

	case api.MsgError:
		var msg api.ErrorMessage
		if err := env.Decode(&msg); err != nil {
			return
		}
		io.Printf("[%s] server error %s: %s\n", now, msg.Code, msg.Message)

	default:
		io.Printf("[%s] %s\n", now, env.Type)
	}
}
