package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"sqlbridge/internal/config"
	"sqlbridge/internal/dataset"
	"sqlbridge/internal/driver"
	"sqlbridge/internal/exporter"
	"sqlbridge/internal/loader"
	"sqlbridge/internal/session"
	"sqlbridge/internal/storage"
)

// Status codes returned to the caller of a command.
const (
	statusOK      = 0
	statusFailure = 198
)

var errUnknownCommand = errors.New("unknown command")

// shell is the host command surface: it owns the session, the dataset and
// the loader that fills it.
type shell struct {
	cfg     *config.Config
	session *session.Session
	data    *dataset.Dataset
	loader  *loader.Loader
	out     io.Writer
	errOut  io.Writer

	exporter *exporter.Exporter
}

func newShell(cfg *config.Config, s *session.Session, out, errOut io.Writer) *shell {
	data := dataset.New()
	return &shell{
		cfg:     cfg,
		session: s,
		data:    data,
		loader:  loader.New(s, data, loader.WithOutput(out)),
		out:     out,
		errOut:  errOut,
	}
}

// run executes one command per line from r. In batch mode it stops at the
// first failing command and returns its status.
func (sh *shell) run(ctx context.Context, r io.Reader, batch bool, prompt string) int {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	status := statusOK
	for {
		if prompt != "" {
			fmt.Fprint(sh.out, prompt)
		}
		if !sc.Scan() {
			break
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var quit bool
		status, quit = sh.dispatch(ctx, line)
		if quit || (batch && status != statusOK) {
			return status
		}
		if ctx.Err() != nil {
			return statusFailure
		}
	}
	if err := sc.Err(); err != nil {
		slog.Error("Failed to read commands", "error", err)
		return statusFailure
	}
	return status
}

// dispatch runs a single command line.
func (sh *shell) dispatch(ctx context.Context, line string) (status int, quit bool) {
	name, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	var err error
	switch strings.ToLower(name) {
	case "help":
		sh.help()
	case "initialize", "init":
		err = sh.initialize(rest)
	case "query":
		err = sh.query(ctx, rest)
	case "describe":
		err = sh.data.Describe(sh.out)
	case "list":
		err = sh.list(rest)
	case "export":
		err = sh.export(ctx, rest)
	case "clear":
		sh.data.Clear()
		fmt.Fprintln(sh.out, "Dataset cleared.")
	case "exit", "quit":
		return statusOK, true
	default:
		err = fmt.Errorf("%w %q, type help for a list of commands", errUnknownCommand, name)
	}

	if err != nil {
		sh.report(err)
		return statusFailure, false
	}
	return statusOK, false
}

func (sh *shell) help() {
	fmt.Fprint(sh.out, `Usage example:
  initialize <URL> <path_to_connection_file>
  query SELECT * FROM .. LIMIT 100

Commands:
  help                                show this text
  initialize <URL> <credential file>  set the database and the user/password file
  query <SQL>                         run a read-only query and append its rows
  describe                            list variables and storage types
  list [n]                            show the first n observations
  export <format> [name]              write the dataset (csv, json, excel, pdf, arrow)
  clear                               drop all variables and observations
  exit                                leave

Accepted URL prefixes: `+strings.Join(driver.Schemes(), " ")+`
`)
}

func (sh *shell) initialize(rest string) error {
	args, err := splitArgs(rest)
	if err != nil {
		return fmt.Errorf("%w: %v", session.ErrInvalidArguments, err)
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: specify the connection URL and the path of the credential file which contains the user name and password",
			session.ErrInvalidArguments)
	}
	return sh.initializeWith(args[0], args[1])
}

func (sh *shell) initializeWith(url, credentialPath string) error {
	cfg, err := sh.session.Initialize(url, credentialPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Connection successfully initialized. User: %s\n", cfg.Credentials.User())
	return nil
}

func (sh *shell) query(ctx context.Context, rest string) error {
	_, err := sh.loader.ExecuteQuery(ctx, unquote(rest))
	if errors.Is(err, session.ErrNotInitialized) {
		fmt.Fprintln(sh.errOut, "Please initialize the connection first with:")
		fmt.Fprintln(sh.errOut, "  initialize <URL> <path_to_connection_file>")
	}
	return err
}

func (sh *shell) list(rest string) error {
	var n int64
	if rest != "" {
		v, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || v < 0 {
			return fmt.Errorf("%w: list takes a number of observations", session.ErrInvalidArguments)
		}
		n = v
	}
	return sh.data.List(sh.out, n)
}

func (sh *shell) export(ctx context.Context, rest string) error {
	args, err := splitArgs(rest)
	if err != nil || len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: export <format> [name]", session.ErrInvalidArguments)
	}
	format, err := exporter.ParseFormat(args[0])
	if err != nil {
		return err
	}
	var name string
	if len(args) == 2 {
		name = args[1]
	}

	if sh.exporter == nil {
		store, err := storage.NewProvider(sh.cfg)
		if err != nil {
			return fmt.Errorf("storage: %w", err)
		}
		sh.exporter = exporter.New(store, sh.cfg.ExportCompression)
	}

	res, err := sh.exporter.Export(ctx, sh.data, format, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Exported %d observations to %s\n", res.RowsProcessed, res.Location)
	return nil
}

// report prints err to the error stream with the details its type carries.
func (sh *shell) report(err error) {
	fmt.Fprintf(sh.errOut, "Error: %v\n", err)

	var ce *driver.ConnectionError
	if errors.As(err, &ce) && (ce.SQLState != "" || ce.VendorCode != 0) {
		fmt.Fprintf(sh.errOut, "SQL state: %s, vendor code: %d\n", ce.SQLState, ce.VendorCode)
	}
	var ee *loader.ExecutionError
	if errors.As(err, &ee) && len(ee.Stack) > 0 {
		fmt.Fprintf(sh.errOut, "%s\n", ee.Stack)
	}
	fmt.Fprintf(sh.errOut, "r(%d);\n", statusFailure)
}

// splitArgs splits on whitespace, keeping single- or double-quoted runs
// together.
func splitArgs(s string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		quote   rune
		inToken bool
	)
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inToken = true
		case r == ' ' || r == '\t':
			if inToken {
				args = append(args, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, errors.New("unterminated quote")
	}
	if inToken {
		args = append(args, cur.String())
	}
	return args, nil
}

// unquote strips one pair of matching quotes around a whole argument.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if first, last := s[0], s[len(s)-1]; first == last && (first == '"' || first == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
