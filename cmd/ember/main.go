// Package main provides the Ember chat REPL: a thin loop around the
// conversation memory subsystem. Each turn appends the input, runs the
// budget check, recalls relevant history, and hands the assembled context
// payload to the model; the session is persisted on exit.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	agentcontext "github.com/entrhq/ember/pkg/agent/context"
	"github.com/entrhq/ember/pkg/agent/memory"
	"github.com/entrhq/ember/pkg/agent/memory/archive"
	"github.com/entrhq/ember/pkg/agent/recall"
	appconfig "github.com/entrhq/ember/pkg/config"
	"github.com/entrhq/ember/pkg/llm/tokenizer"
	"github.com/entrhq/ember/pkg/logging"
	"github.com/entrhq/ember/pkg/types"
)

const (
	version      = "0.1.0"
	defaultModel = "gpt-4o"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("ember")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		debugLog.Warnf("failed to initialize ember logger, using stderr fallback: %v", err)
	}
}

type cliConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	ConfigFile  string
	Session     string
	ShowVersion bool
}

func main() {
	cfg := parseFlags()

	if cfg.ShowVersion {
		fmt.Printf("Ember v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nshutting down...")
		cancel()
	}()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "ember: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() *cliConfig {
	cfg := &cliConfig{}
	flag.StringVar(&cfg.APIKey, "api-key", "", "API key (defaults to OPENAI_API_KEY)")
	flag.StringVar(&cfg.BaseURL, "base-url", "", "OpenAI-compatible base URL")
	flag.StringVar(&cfg.Model, "model", defaultModel, "model to chat with")
	flag.StringVar(&cfg.ConfigFile, "config", "", "config file path (default ~/.ember/config.json)")
	flag.StringVar(&cfg.Session, "session", "", "session name to resume")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "print version and exit")
	flag.Parse()
	return cfg
}

func run(ctx context.Context, cfg *cliConfig) error {
	if err := appconfig.Initialize(cfg.ConfigFile); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	memCfg := appconfig.GetMemory()

	provider, err := appconfig.BuildProvider(cfg.Model, cfg.BaseURL, cfg.APIKey, defaultModel)
	if err != nil {
		return err
	}

	est, err := tokenizer.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: exact token counts unavailable: %v\n", err)
	}

	sessionDir := memCfg.GetSessionDir()
	sess, err := openSession(cfg.Session, provider.GetModel(), sessionDir, est)
	if err != nil {
		return err
	}

	manager := agentcontext.NewManager(
		provider,
		memCfg.GetTokenBudget(),
		agentcontext.NewBudgetCompressionStrategy(memCfg.GetKeepRecent()),
	)
	if llmCfg := appconfig.GetLLM(); llmCfg != nil {
		manager.SetSummarizationModel(llmCfg.GetSummarizationModel())
	}

	engine := recall.NewEngine(memCfg.GetRecallTopK(), memCfg.GetRecallTokenBudget())

	fmt.Printf("Ember v%s: session %q, model %s. /help for commands.\n",
		version, sess.Name, provider.GetModel())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			next, done, err := handleCommand(input, sess, sessionDir)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
			if next != nil {
				sess = next
			}
			if done {
				break
			}
			continue
		}

		sess.Append(types.RoleUser, input)

		if _, err := manager.CheckAndCompress(ctx, sess); err != nil {
			fmt.Fprintf(os.Stderr, "compression error: %v\n", err)
		}

		chunks := engine.Recall(sess, input, 0)
		payload := agentcontext.BuildPayload(sess, chunks)
		debugLog.Debugf("sending %d messages (~%d tokens) to %s",
			len(payload), est.EstimateMessages(payload), provider.GetModel())

		response, err := provider.Complete(ctx, payload)
		if err != nil {
			fmt.Fprintf(os.Stderr, "model error: %v\n", err)
			continue
		}
		fmt.Printf("\n%s\n\n", response.Content)
		sess.Append(types.RoleAssistant, response.Content)
	}

	path := memory.SessionPath(sessionDir, sess.Name)
	if err := sess.Save(path); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	fmt.Printf("session saved to %s\n", path)
	return nil
}

// openSession resumes a named session from disk when it exists, otherwise
// starts a fresh one. An empty name gets a timestamp.
func openSession(name, model, dir string, est tokenizer.Estimator) (*memory.Session, error) {
	if name == "" {
		return memory.NewSession(time.Now().UTC().Format("20060102_150405"), model, memory.WithEstimator(est)), nil
	}

	path := memory.SessionPath(dir, name)
	if _, err := os.Stat(path); err == nil {
		sess, err := memory.Load(path, memory.WithEstimator(est))
		if err != nil {
			return nil, fmt.Errorf("resume session %q: %w", name, err)
		}
		if sess.Model == "" {
			sess.Model = model
		}
		return sess, nil
	}
	return memory.NewSession(name, model, memory.WithEstimator(est)), nil
}

// handleCommand runs one slash command. A non-nil session in the return
// replaces the current one (only /load does this).
func handleCommand(input string, sess *memory.Session, sessionDir string) (next *memory.Session, done bool, err error) {
	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/exit", "/quit":
		return nil, true, nil

	case "/save":
		if len(args) > 0 {
			sess.Name = args[0]
		}
		path := memory.SessionPath(sessionDir, sess.Name)
		if err := sess.Save(path); err != nil {
			return nil, false, err
		}
		fmt.Printf("saved to %s\n", path)

	case "/load":
		if len(args) == 0 {
			return nil, false, fmt.Errorf("usage: /load <name>")
		}
		loaded, err := memory.Load(memory.SessionPath(sessionDir, args[0]), memory.WithEstimator(sess.Estimator()))
		if err != nil {
			return nil, false, err
		}
		if loaded.Model == "" {
			loaded.Model = sess.Model
		}
		fmt.Printf("loaded %q (%d messages)\n", loaded.Name, len(loaded.AllMessages()))
		return loaded, false, nil

	case "/sessions":
		pattern := ""
		if len(args) > 0 {
			pattern = args[0]
		}
		names, err := memory.ListSessions(sessionDir, pattern)
		if err != nil {
			return nil, false, err
		}
		if len(names) == 0 {
			fmt.Println("no saved sessions")
			break
		}
		for _, n := range names {
			fmt.Println("  " + n)
		}

	case "/clear":
		sess.Clear()
		fmt.Println("conversation cleared")

	case "/stats":
		st := sess.Stats()
		fmt.Printf("active entities: %d (summaries: %d)\ntotal messages: %d\nactive tokens: %d\nindexed: %d\n",
			st.ActiveEntities, st.Summaries, st.TotalMessages, st.ActiveTokens, st.IndexedDocs)

	case "/export":
		out := memory.SanitizeName(sess.Name) + ".md"
		if len(args) > 0 {
			out = args[0]
		}
		raw, err := archive.Export(sess)
		if err != nil {
			return nil, false, err
		}
		if err := os.WriteFile(out, raw, 0o600); err != nil {
			return nil, false, fmt.Errorf("write export: %w", err)
		}
		fmt.Printf("exported to %s\n", out)

	case "/help":
		fmt.Println("/save [name]      save the session")
		fmt.Println("/load <name>      switch to a saved session")
		fmt.Println("/sessions [glob]  list saved sessions")
		fmt.Println("/clear            clear the conversation history")
		fmt.Println("/stats            memory statistics")
		fmt.Println("/export [file]    export transcript as Markdown")
		fmt.Println("/exit             save and quit")

	default:
		fmt.Printf("unknown command %s (try /help)\n", cmd)
	}
	return nil, false, nil
}
