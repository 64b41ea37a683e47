package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/crate/internal/shared"
)

// APIGet performs an authenticated GET and prints the JSON response.
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	return r.apiCall(ctx, cmd, http.MethodGet)
}

// APIPut performs an authenticated PUT with the --data body.
func (r *Runner) APIPut(ctx context.Context, cmd *cli.Command) error {
	return r.apiCall(ctx, cmd, http.MethodPut)
}

// APIDelete performs an authenticated DELETE with the optional --data body.
func (r *Runner) APIDelete(ctx context.Context, cmd *cli.Command) error {
	return r.apiCall(ctx, cmd, http.MethodDelete)
}

func (r *Runner) apiCall(ctx context.Context, cmd *cli.Command, method string) error {
	endpoint, err := requireArg(cmd, "endpoint")
	if err != nil {
		return err
	}
	if !strings.HasPrefix(endpoint, "/") && !strings.HasPrefix(endpoint, "http") {
		endpoint = "/" + endpoint
	}

	var body any
	if data := cmd.String("data"); data != "" {
		if !json.Valid([]byte(data)) {
			return fmt.Errorf("%w: --data is not valid JSON", shared.ErrInvalidFlag)
		}
		body = json.RawMessage(data)
	}

	if err := r.connect(); err != nil {
		return err
	}

	r.logger.Debug("raw api call", "method", method, "endpoint", endpoint)
	raw, err := r.spotify.Executor().Execute(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if raw == nil {
		return r.writePlain("%s\n", r.palette.OK(method+" "+endpoint+" (no content)"))
	}

	if expr := cmd.String("jq"); expr != "" {
		return r.writeJQ(ctx, raw, expr, cmd.Bool("pretty"))
	}
	return r.writeJSON(raw, cmd.Bool("pretty"))
}
