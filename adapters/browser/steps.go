package browser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// keyAliases maps step-script key names to the raw characters chromedp
// dispatches.
var keyAliases = map[string]string{
	"tab":   "\t",
	"enter": "\r",
	"space": " ",
}

// compileSteps turns a candidate's step script into chromedp actions.
//
// Verbs:
//
//	navigate [url]        go to url (default: the configured target)
//	wait <selector>       wait until the first match is visible
//	fill <selector> <v>   send keys to the first match
//	click <selector>      click the first match
//	sleep <duration>      pause (Go duration syntax)
//	viewport <w> <h>      emulate a viewport size
//	key <name>            dispatch a key (tab, enter, space, or a literal)
//	eval <js>             evaluate a javascript expression
func compileSteps(targetURL string, steps []string) ([]chromedp.Action, error) {
	var actions []chromedp.Action
	for i, s := range steps {
		action, err := compileStep(targetURL, s)
		if err != nil {
			return nil, fmt.Errorf("step %d (%q): %w", i+1, s, err)
		}
		actions = append(actions, action)
	}
	return actions, nil
}

func compileStep(targetURL, s string) (chromedp.Action, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty step")
	}
	verb, args := fields[0], fields[1:]

	switch verb {
	case "navigate":
		url := targetURL
		if len(args) > 0 {
			url = args[0]
		}
		if url == "" {
			return nil, fmt.Errorf("no target url")
		}
		return chromedp.Navigate(url), nil

	case "wait":
		if len(args) != 1 {
			return nil, fmt.Errorf("wait needs a selector")
		}
		return chromedp.WaitVisible(args[0], chromedp.ByQuery), nil

	case "fill":
		if len(args) < 2 {
			return nil, fmt.Errorf("fill needs a selector and a value")
		}
		return chromedp.SendKeys(args[0], strings.Join(args[1:], " "), chromedp.ByQuery), nil

	case "click":
		if len(args) != 1 {
			return nil, fmt.Errorf("click needs a selector")
		}
		return chromedp.Click(args[0], chromedp.ByQuery), nil

	case "sleep":
		if len(args) != 1 {
			return nil, fmt.Errorf("sleep needs a duration")
		}
		d, err := time.ParseDuration(args[0])
		if err != nil {
			return nil, fmt.Errorf("bad duration: %w", err)
		}
		return chromedp.Sleep(d), nil

	case "viewport":
		if len(args) != 2 {
			return nil, fmt.Errorf("viewport needs width and height")
		}
		w, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad width: %w", err)
		}
		h, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad height: %w", err)
		}
		return chromedp.EmulateViewport(w, h), nil

	case "key":
		if len(args) != 1 {
			return nil, fmt.Errorf("key needs a key name")
		}
		k := args[0]
		if raw, ok := keyAliases[strings.ToLower(k)]; ok {
			k = raw
		}
		return chromedp.KeyEvent(k), nil

	case "eval":
		if len(args) == 0 {
			return nil, fmt.Errorf("eval needs an expression")
		}
		return chromedp.Evaluate(strings.Join(args, " "), nil), nil

	default:
		return nil, fmt.Errorf("unknown verb %q", verb)
	}
}
