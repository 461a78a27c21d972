package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/scout/models"
)

// Action is one scripted browser interaction, used by credentialed flows
// (login forms) and lazy-loading pages.
type Action struct {
	// Type is one of "wait", "click", "input", "scroll".
	Type string

	// Selector targets the element for click/input/wait.
	Selector string

	// Value is the text typed by an input action.
	Value string

	// Milliseconds is the wait duration when no selector is given.
	Milliseconds int
}

// actionTimeout is the per-action deadline.
const actionTimeout = 10 * time.Second

// executeActions runs the ordered list of browser actions on the page.
// If any action fails, it returns an error describing which action failed
// and how many completed successfully.
func executeActions(ctx context.Context, page *rod.Page, actions []Action) error {
	for i, action := range actions {
		if err := executeSingleAction(ctx, page, action); err != nil {
			return models.NewScrapeError(
				models.ErrCodeTransient,
				fmt.Sprintf("action %d (%s) failed after %d completed: %v", i, action.Type, i, err),
				err,
			)
		}
	}
	return nil
}

// executeSingleAction dispatches a single action with its own timeout.
func executeSingleAction(ctx context.Context, page *rod.Page, action Action) error {
	actionCtx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()

	p := page.Context(actionCtx)

	switch action.Type {
	case "wait":
		return execWait(p, action)
	case "click":
		return execClick(p, action)
	case "input":
		return execInput(p, action)
	case "scroll":
		return execScroll(p)
	default:
		return fmt.Errorf("unknown action type: %s", action.Type)
	}
}

// execWait either sleeps for a duration or waits for a CSS selector to appear.
func execWait(p *rod.Page, action Action) error {
	if action.Selector != "" {
		return p.WaitElementsMoreThan(action.Selector, 0)
	}
	if action.Milliseconds > 0 {
		d := time.Duration(action.Milliseconds) * time.Millisecond
		select {
		case <-time.After(d):
			return nil
		case <-p.GetContext().Done():
			return p.GetContext().Err()
		}
	}
	return nil
}

// execClick finds the element matching the selector and clicks it.
func execClick(p *rod.Page, action Action) error {
	if action.Selector == "" {
		return fmt.Errorf("click action requires a selector")
	}
	el, err := p.Element(action.Selector)
	if err != nil {
		return fmt.Errorf("element %q not found: %w", action.Selector, err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// execInput types the value into the element matching the selector.
func execInput(p *rod.Page, action Action) error {
	if action.Selector == "" {
		return fmt.Errorf("input action requires a selector")
	}
	el, err := p.Element(action.Selector)
	if err != nil {
		return fmt.Errorf("element %q not found: %w", action.Selector, err)
	}
	if err := el.SelectAllText(); err == nil {
		_ = el.Input("")
	}
	return el.Input(action.Value)
}

// execScroll scrolls one viewport down, letting lazy-loaded content trigger.
func execScroll(p *rod.Page) error {
	res, err := p.Eval(`() => window.innerHeight`)
	if err != nil {
		return fmt.Errorf("failed to get viewport height: %w", err)
	}
	if err := p.Mouse.Scroll(0, float64(res.Value.Int()), 0); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	return nil
}
