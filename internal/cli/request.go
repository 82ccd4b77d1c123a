package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucasvrm/previso/internal/infra/apiclient"
)

var (
	reqRetries int
	reqParams  map[string]string
	reqHeaders map[string]string
	reqData    string
	reqNoAuth  bool
	reqAuth    bool
)

func newRequestCmd(method string, withBody bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   strings.ToLower(method) + " <path>",
		Short: fmt.Sprintf("Send a %s request to the backend", method),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, method, args[0])
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&reqRetries, "retries", 0, "retry budget for transient failures (capped by retry.max_retries_cap)")
	flags.StringToStringVarP(&reqParams, "param", "p", nil, "query parameter key=value")
	flags.StringToStringVarP(&reqHeaders, "header", "H", nil, "extra header key=value")
	flags.BoolVar(&reqNoAuth, "no-auth", false, "allow the request without a session")
	flags.BoolVar(&reqAuth, "auth", false, "fail without a session instead of sending anonymously")
	if withBody {
		flags.StringVarP(&reqData, "data", "d", "", "JSON request body, or @file, or - for stdin")
	}
	return cmd
}

func init() {
	rootCmd.AddCommand(
		newRequestCmd(http.MethodGet, false),
		newRequestCmd(http.MethodPost, true),
		newRequestCmd(http.MethodPut, true),
		newRequestCmd(http.MethodDelete, false),
	)
}

func runRequest(cmd *cobra.Command, method, path string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	opts := apiclient.Options{
		MaxRetries: reqRetries,
		Params:     reqParams,
		Headers:    reqHeaders,
	}
	switch {
	case reqNoAuth:
		opts.RequireAuth = apiclient.Bool(false)
	case reqAuth:
		opts.RequireAuth = apiclient.Bool(true)
	}

	var body any
	if reqData != "" && (method == http.MethodPost || method == http.MethodPut) {
		raw, err := readData(reqData, cmd.InOrStdin())
		if err != nil {
			return err
		}
		body = raw
	}

	resp, err := app.Client.Do(commandContext(cmd), method, path, body, opts)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), resp)
}

// readData resolves --data into a JSON document.
func readData(data string, stdin io.Reader) (json.RawMessage, error) {
	var raw []byte
	switch {
	case data == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		raw = b
	case strings.HasPrefix(data, "@"):
		path := strings.TrimPrefix(data, "@")
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		raw = b
	default:
		raw = []byte(data)
	}

	raw = bytes.TrimSpace(raw)
	if !json.Valid(raw) {
		return nil, fmt.Errorf("request body is not valid JSON")
	}
	return json.RawMessage(raw), nil
}

// writeJSON pretty-prints body; an empty body prints nothing.
func writeJSON(w io.Writer, body json.RawMessage) error {
	if len(body) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		_, err = w.Write(append(body, '\n'))
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
