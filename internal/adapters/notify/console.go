package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/adelgado/qlines/internal/domain"
	"github.com/adelgado/qlines/internal/ports"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier: el watchboard por ciclo del operador.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify imprime el estado de los eventos trackeados en el modo configurado.
func (c *Console) Notify(_ context.Context, views []ports.TrackedView) error {
	if len(views) == 0 {
		fmt.Fprintf(c.out, "[%s] no live events\n", time.Now().Format("15:04:05"))
		return nil
	}

	sort.Slice(views, func(i, j int) bool { return views[i].NextWindow < views[j].NextWindow })

	if c.table {
		c.printFull(views)
	} else {
		c.printCompact(views)
	}
	return nil
}

// printCompact imprime lo esencial en una línea: los eventos más cerca de
// una ventana primero.
func (c *Console) printCompact(views []ports.TrackedView) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d tracked", time.Now().Format("15:04:05"), len(views))

	shown := 0
	for _, v := range views {
		if shown >= 4 {
			break
		}
		if v.Status.Terminal() {
			continue
		}
		fmt.Fprintf(&sb, " | %s Q%d %s %d-%d sp:%s tot:%s win:%ds",
			matchLabel(v), v.Quarter, clockLabel(v.Remaining),
			v.HomeScore, v.AwayScore,
			lineLabel(v.Spread), lineLabel(v.Total), v.NextWindow)
		shown++
	}
	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime el watchboard completo.
func (c *Console) printFull(views []ports.TrackedView) {
	fmt.Fprintf(c.out, "\n[%s] tracked events\n", time.Now().Format("15:04:05"))

	table := tablewriter.NewWriter(c.out)
	table.Header("FI", "Match", "State", "Clock", "Score", "Spread", "Total", "Next win")

	for _, v := range views {
		table.Append(
			fmt.Sprintf("%d", v.EventID),
			matchLabel(v),
			v.Status.String(),
			fmt.Sprintf("Q%d %s", v.Quarter, clockLabel(v.Remaining)),
			fmt.Sprintf("%d-%d", v.HomeScore, v.AwayScore),
			lineLabel(v.Spread),
			lineLabel(v.Total),
			fmt.Sprintf("%ds", v.NextWindow),
		)
	}
	table.Render()
}

// PrintReport imprime el resumen de precisión línea-vs-final.
func (c *Console) PrintReport(sum domain.AccuracySummary) {
	fmt.Fprintf(c.out, "\nline accuracy — %d events (%d spread, %d total)\n",
		sum.Events, sum.SpreadCount, sum.TotalCount)

	if sum.Events == 0 {
		fmt.Fprintln(c.out, "no results yet")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Market", "Avg delta", "≤2", "≤3", "≤4", "≤5")
	table.Append("spread", fmt.Sprintf("%.2f", sum.AvgSpread),
		pct(sum.SpreadWithin[0]), pct(sum.SpreadWithin[1]),
		pct(sum.SpreadWithin[2]), pct(sum.SpreadWithin[3]))
	table.Append("total", fmt.Sprintf("%.2f", sum.AvgTotal),
		pct(sum.TotalWithin[0]), pct(sum.TotalWithin[1]),
		pct(sum.TotalWithin[2]), pct(sum.TotalWithin[3]))
	table.Render()
}

func matchLabel(v ports.TrackedView) string {
	return truncate(v.HomeName, 18) + " v " + truncate(v.AwayName, 18)
}

func clockLabel(remaining int) string {
	return fmt.Sprintf("%d:%02d", remaining/60, remaining%60)
}

func lineLabel(f *float64) string {
	if f == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *f)
}

func pct(rate float64) string {
	return fmt.Sprintf("%.0f%%", rate*100)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
