// Package display renders fader state and device listings for the terminal.
package display

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/bft-labs/faderlink/internal/app"
	"github.com/bft-labs/faderlink/internal/codec"
	"github.com/bft-labs/faderlink/internal/fader"
)

// BarWidth is the number of cells used to draw a fader position.
const BarWidth = 16

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	masterStyle = cellStyle.Foreground(lipgloss.Color("11"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...)
}

// Faders renders one row per fader: address, name, value and a bar.
func Faders(snaps []fader.Snapshot) string {
	t := newTable("ADDR", "NAME", "VALUE", "LEVEL")
	for _, s := range snaps {
		t.Row(strconv.Itoa(int(s.Address)), s.Name, strconv.Itoa(s.Value), Bar(s.Value, BarWidth))
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		if row >= 0 && row < len(snaps) && snaps[row].Master {
			return masterStyle
		}
		return cellStyle
	})
	return t.String()
}

// Bar draws v on a width-cell scale from codec.MinValue to codec.MaxValue.
func Bar(v, width int) string {
	if width <= 0 {
		return ""
	}
	if v < codec.MinValue {
		v = codec.MinValue
	}
	if v > codec.MaxValue {
		v = codec.MaxValue
	}
	filled := (v - codec.MinValue) * width / (codec.MaxValue - codec.MinValue)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// Ports renders the input and output port names side by side.
func Ports(ins, outs []string) string {
	t := newTable("#", "INPUT", "OUTPUT")
	n := max(len(ins), len(outs))
	for i := 0; i < n; i++ {
		t.Row(strconv.Itoa(i), at(ins, i), at(outs, i))
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		return cellStyle
	})
	return t.String()
}

// Diff renders the differing payload positions of recorded messages, one
// column per recording.
func Diff(names []string, entries []app.DiffEntry) string {
	headers := append([]string{"INDEX"}, names...)
	t := newTable(headers...)
	for _, e := range entries {
		row := make([]string, 0, len(e.Values)+1)
		row = append(row, strconv.Itoa(e.Index))
		for _, v := range e.Values {
			row = append(row, fmt.Sprintf("%02X", v))
		}
		t.Row(row...)
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		return cellStyle
	})
	return t.String()
}

func at(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}
