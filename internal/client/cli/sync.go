package cli

import (
	"context"
	"fmt"

	clientapi "github.com/iudanet/shiftsync/internal/client/api"
	"github.com/iudanet/shiftsync/internal/client/iocli"
	"github.com/iudanet/shiftsync/internal/client/state"
	"github.com/iudanet/shiftsync/pkg/api"
)

// RunSync подтягивает изменения с сервера и накатывает их на локальное
// зеркало. Точка отсчета — последняя подтвержденная версия зеркала;
// свежее зеркало получает полный снимок.
func RunSync(ctx context.Context, io iocli.IO, serverURL string, mirror *state.Mirror) error {
	io.Println("=== Synchronization ===")
	io.Println()

	since, err := mirror.LastVersion()
	if err != nil {
		return err
	}

	client, err := clientapi.Dial(ctx, serverURL, "")
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer func() { _ = client.Close() }()

	resp, err := client.Sync(since)
	if err != nil {
		return fmt.Errorf("synchronization failed: %w", err)
	}

	applied, err := applySyncResponse(mirror, resp)
	if err != nil {
		return fmt.Errorf("failed to apply server changes: %w", err)
	}

	io.Println("✓ Synchronization completed successfully!")
	io.Println()
	if resp.Bootstrap {
		io.Printf("Full snapshot:    %d employee(s)\n", applied)
	} else {
		io.Printf("Applied changes:  %d\n", applied)
	}
	io.Printf("Roster version:   %d\n", resp.CurrentVersion)

	return nil
}

// applySyncResponse накатывает ответ синхронизации на зеркало и
// возвращает число примененных записей. Bootstrap авторитетен целиком
// и замещает зеркало, дельта накатывается по одному изменению.
func applySyncResponse(mirror *state.Mirror, resp *api.SyncResponse) (int, error) {
	var applied int

	if resp.Bootstrap {
		if err := mirror.ReplaceAll(resp.Employees); err != nil {
			return 0, err
		}
		applied = len(resp.Employees)
	} else {
		for _, change := range resp.Changes {
			if err := mirror.ApplyChange(change); err != nil {
				return applied, err
			}
			applied++
		}
	}

	if err := mirror.SetLastVersion(resp.CurrentVersion); err != nil {
		return applied, err
	}

	return applied, nil
}
