package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gofood/internal/buildinfo"
	"github.com/dmitrijs2005/gofood/internal/client/apierror"
	"github.com/dmitrijs2005/gofood/internal/client/transport"
	"github.com/dmitrijs2005/gofood/internal/common"
)

const usage = `usage: apiclient [flags] <command> [args]

commands:
  login [email]
  get <path>
  delete <path>
  post <path> <json>
  put <path> <json>
  patch <path> <json>
  whoami
  logout
  version
`

// Run executes one command and returns the process exit code. args holds
// positional arguments only.
func (a *App) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(a.errOut, usage)
		return ExitUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return a.report(a.login(ctx, rest))
	case "logout":
		return a.report(a.client.Logout(ctx))
	case "whoami":
		return a.report(a.whoami(ctx))
	case "version":
		buildinfo.PrintBuildData(a.out)
		return ExitOK
	case "get", "delete":
		if len(rest) != 1 {
			return a.usageError("%s needs a path", cmd)
		}
		return a.report(a.call(ctx, strings.ToUpper(cmd), rest[0], nil))
	case "post", "put", "patch":
		if len(rest) != 2 {
			return a.usageError("%s needs a path and a JSON body", cmd)
		}
		if !json.Valid([]byte(rest[1])) {
			return a.usageError("body is not valid JSON")
		}
		return a.report(a.call(ctx, strings.ToUpper(cmd), rest[0], json.RawMessage(rest[1])))
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return ExitOK
	default:
		return a.usageError("unknown command %q", cmd)
	}
}

func (a *App) usageError(format string, args ...any) int {
	fmt.Fprintf(a.errOut, "error: "+format+"\n\n", args...)
	fmt.Fprint(a.errOut, usage)
	return ExitUsage
}

func (a *App) login(ctx context.Context, args []string) error {
	var email string
	if len(args) > 0 {
		email = args[0]
	} else {
		var err error
		email, err = GetSimpleText(a.reader, "Enter email", a.out)
		if err != nil {
			return err
		}
	}

	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.client.Login(ctx, email, string(password)); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Login successful")
	return nil
}

func (a *App) whoami(ctx context.Context) error {
	if !a.client.IsAuthenticated(ctx) {
		fmt.Fprintln(a.out, "not logged in")
		return nil
	}
	if exp, ok := a.client.SessionExpiry(ctx); ok {
		fmt.Fprintf(a.out, "access token expires %s (in %s)\n", exp.Format(time.RFC3339), time.Until(exp).Round(time.Second))
	}
	return a.call(ctx, "GET", "/me", nil)
}

func (a *App) call(ctx context.Context, method, path string, body any) error {
	resp, err := a.client.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	a.printResponse(resp)
	return nil
}

func (a *App) printResponse(resp *transport.Response) {
	if len(resp.Body) == 0 {
		fmt.Fprintf(a.out, "%d\n", resp.Status)
		return
	}
	var v any
	if err := json.Unmarshal(resp.Body, &v); err != nil {
		fmt.Fprintln(a.out, string(resp.Body))
		return
	}
	pretty, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(a.out, string(pretty))
}

// report prints err, if any, and maps it to an exit code.
func (a *App) report(err error) int {
	if err == nil {
		return ExitOK
	}

	apiErr, ok := apierror.AsAPIError(err)
	if !ok {
		fmt.Fprintf(a.errOut, "error: %v\n", err)
		return ExitError
	}

	out, _ := json.MarshalIndent(map[string]any{
		"kind":    apiErr.Kind,
		"code":    apiErr.Code,
		"status":  apiErr.Status,
		"message": apiErr.Message,
	}, "", "  ")
	fmt.Fprintln(a.errOut, string(out))

	if apiErr.Terminal() {
		fmt.Fprintln(a.errOut, "session expired, run `apiclient login` again")
		return ExitSessionExpired
	}
	return ExitError
}
