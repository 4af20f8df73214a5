// Package render colorizes action_log lines for an operator console,
// mirroring the teacher's EventFormatter/lipgloss styling (§11). It is
// purely cosmetic and is not imported by cmd/server: the wire protocol
// carries plain strings.
package render

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/dstrand/pokerserver/internal/engine"
)

var (
	seatStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	foldStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	callStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	raiseStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	allInStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	streetStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
)

// ActionLine renders one ActionLogEntry as a colorized console line, e.g.
// "Seat 3: raises to 120". This mirrors the canonical action_log.text
// wording (§6/§8) as closely as ActionLogEntry's single Amount field
// allows: CALL/ALL_IN omit the "(to {street_total} total)"/"(total
// {hand_total})" parentheticals, since ActionLogEntry carries only the
// chips added by the action, not the resulting street/hand totals —
// orchestrator.narrate has the full GameActionResult and emits those.
func ActionLine(displayName string, entry engine.ActionLogEntry) string {
	seat := seatStyle.Render(displayName)

	var action string
	switch entry.Action {
	case "FOLD":
		action = foldStyle.Render("folds")
	case "CHECK":
		action = callStyle.Render("checks")
	case "CALL":
		action = callStyle.Render(fmt.Sprintf("calls %d", entry.Amount))
	case "BET":
		action = raiseStyle.Render(fmt.Sprintf("bets %d", entry.Amount))
	case "RAISE":
		action = raiseStyle.Render(fmt.Sprintf("raises to %d", entry.Amount))
	case "ALL_IN":
		action = allInStyle.Render(fmt.Sprintf("goes all-in for %d", entry.Amount))
	default:
		action = fmt.Sprintf("%s %d", entry.Action, entry.Amount)
	}

	return fmt.Sprintf("%s: %s", seat, action)
}

// StreetHeader renders a "*** FLOP *** [...]"-style banner for a round
// transition.
func StreetHeader(round engine.Round, community []string) string {
	label := streetStyle.Render(fmt.Sprintf("*** %s ***", round))
	if len(community) == 0 {
		return label
	}
	return fmt.Sprintf("%s %v", label, community)
}
