package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/harun/cortex/pkg/agent"
	"github.com/spf13/cobra"
)

type runOptions struct {
	query     string
	sessionID string
	json      bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Answer queries with the agent",
		Long: `Run the agent. With --query the agent answers one query and exits;
otherwise an interactive prompt reads one query per line. Type 'new' to start
a fresh session and 'exit' to quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.query, "query", "q", "", "answer a single query and exit")
	cmd.Flags().StringVarP(&opts.sessionID, "session", "s", "", "session id to start or resume (default is a new id)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print results as JSON")
	return cmd
}

func runAgent(cmd *cobra.Command, opts *runOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	lg, err := setupLogging(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer lg.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	sessionID := opts.sessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if opts.query != "" {
		res, err := a.runner.Run(ctx, sessionID, opts.query)
		if err != nil {
			return err
		}
		if err := printResult(cmd.OutOrStdout(), res, opts.json); err != nil {
			return err
		}
		if !res.Final() {
			return fmt.Errorf("session %s ended without a final answer: %s", res.SessionID, res.Reason)
		}
		return nil
	}

	return repl(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), a.runner, sessionID, opts.json)
}

// repl reads one query per line until exit, EOF or cancellation
func repl(ctx context.Context, in io.Reader, out io.Writer, runner *agent.Runner, sessionID string, asJSON bool) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Fprintf(out, "Session %s. Type 'new' for a fresh session, 'exit' to quit.\n", sessionID)
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "new":
			sessionID = uuid.NewString()
			fmt.Fprintf(out, "New session %s\n", sessionID)
			continue
		}

		res, err := runner.Run(ctx, sessionID, line)
		if err != nil {
			return err
		}
		if err := printResult(out, res, asJSON); err != nil {
			return err
		}
	}
}

func printResult(out io.Writer, res agent.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if res.Final() {
		_, err := fmt.Fprintln(out, res.Answer)
		return err
	}

	fmt.Fprintf(out, "[%s] %s\n", res.Failure, res.Reason)
	if res.Answer != "" {
		fmt.Fprintf(out, "Partial answer (incomplete):\n%s\n", res.Answer)
	}
	return nil
}
