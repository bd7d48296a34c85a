package tui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-isatty"
	"github.com/rivo/tview"
)

// ErrCanceled is returned when the user leaves the selection without a choice.
var ErrCanceled = errors.New("selection canceled")

// Selector lets the user pick one of several options.
type Selector interface {
	Select(title string, options []string) (string, error)
}

// ForTerminal returns the full screen list when stdin and stdout are
// terminals and a numbered prompt otherwise.
func ForTerminal() Selector {
	if isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd()) {
		return &ListSelector{}
	}
	return &PromptSelector{In: os.Stdin, Out: os.Stderr}
}

// ListSelector shows the options in a full screen list. Enter picks the
// highlighted entry, Esc or q cancels.
type ListSelector struct {
	// Screen replaces the terminal, mainly for tests.
	Screen tcell.Screen
}

func (s *ListSelector) Select(title string, options []string) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("nothing to select")
	}

	app := tview.NewApplication()
	if s.Screen != nil {
		app.SetScreen(s.Screen)
	}

	var chosen string
	selected := false

	list := tview.NewList().ShowSecondaryText(false)
	for i, opt := range options {
		list.AddItem(opt, "", shortcut(i), nil)
	}
	list.SetSelectedFunc(func(i int, _ string, _ string, _ rune) {
		chosen = options[i]
		selected = true
		app.Stop()
	})
	list.SetBorder(true).SetTitle(" " + title + " ").SetTitleAlign(tview.AlignCenter)

	statusBar := tview.NewTextView().
		SetDynamicColors(true).
		SetText("[yellow]Enter[white] select | [yellow]Up/Down[white] move | [yellow]Esc/q[white] cancel")

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(list, 0, 1, true).
		AddItem(statusBar, 1, 0, false)

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape {
			app.Stop()
			return nil
		}
		switch event.Rune() {
		case 'q', 'Q':
			app.Stop()
			return nil
		}
		return event
	})

	if err := app.SetRoot(layout, true).Run(); err != nil {
		return "", fmt.Errorf("running selector: %w", err)
	}
	if !selected {
		return "", ErrCanceled
	}
	return chosen, nil
}

// shortcut numbers the first nine entries.
func shortcut(i int) rune {
	if i < 9 {
		return rune('1' + i)
	}
	return 0
}

// PromptSelector prints a numbered menu and reads the choice from In. Invalid
// input is reported and asked again; end of input cancels.
type PromptSelector struct {
	In  io.Reader
	Out io.Writer
}

func (p *PromptSelector) Select(title string, options []string) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("nothing to select")
	}

	fmt.Fprintf(p.Out, "\n%s:\n", title)
	for i, opt := range options {
		fmt.Fprintf(p.Out, "%d. %s\n", i+1, opt)
	}

	scanner := bufio.NewScanner(p.In)
	for {
		fmt.Fprintf(p.Out, "\nEnter number (1-%d): ", len(options))
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", fmt.Errorf("reading choice: %w", err)
			}
			return "", ErrCanceled
		}

		choice, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err != nil {
			fmt.Fprintln(p.Out, "Invalid input. Please enter a number.")
			continue
		}
		if choice < 1 || choice > len(options) {
			fmt.Fprintln(p.Out, "Invalid choice. Please try again.")
			continue
		}
		return options[choice-1], nil
	}
}
