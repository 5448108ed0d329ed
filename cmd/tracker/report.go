package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/adelgado/qlines/internal/adapters/notify"
	"github.com/adelgado/qlines/internal/adapters/storage"
)

// runReport imprime el resumen de precisión línea-vs-final y termina.
// No toca la API: solo lee lo ya persistido.
func runReport(ctx context.Context, store *storage.SQLiteStore, console *notify.Console) {
	sum, err := store.AccuracySummary(ctx)
	if err != nil {
		slog.Error("failed to compute accuracy summary", "err", err)
		os.Exit(1)
	}

	if sum.Events == 0 {
		slog.Info("no results yet — run the tracker through some finished matches first")
		return
	}

	console.PrintReport(sum)
}
