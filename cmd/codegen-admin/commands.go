package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/target/codegen-api/internal/adapters/llm"
	"github.com/target/codegen-api/internal/bootstrap"
	"github.com/target/codegen-api/internal/domain/model"
	"github.com/target/codegen-api/internal/service"
)

const adminClientID = "codegen-admin"

var errValidationFailed = errors.New("code failed validation")

type providersOptions struct {
	JSON bool
}

type generateOptions struct {
	Prompt   string
	Target   model.Target
	Timeout  time.Duration
	ClientID string
	JSON     bool
}

type validateOptions struct {
	File     string
	Language string
	JSON     bool
}

func runProviders(cmdCtx *commandContext, args []string) error {
	opts, err := parseProvidersFlags(args)
	if err != nil {
		return err
	}

	adapters := llm.NewAdapters(cmdCtx.Config.LLM, cmdCtx.Logger, nil)
	svc, err := service.NewProviderService(service.ProviderServiceOptions{
		Providers: []service.ProviderRegistration{
			service.OpenAIProvider(adapters.OpenAI),
			service.LocalProvider(adapters.Local),
		},
		Logger: cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("create provider service: %w", err)
	}

	resp := svc.List(cmdCtx.Ctx)
	if opts.JSON {
		return printJSON(cmdCtx.Out, resp)
	}
	return renderProvidersTable(cmdCtx.Out, resp.Providers, adapters.Active.Name())
}

func renderProvidersTable(w io.Writer, providers []model.Provider, activeID string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "ID\tNAME\tTYPE\tAVAILABLE\tACTIVE\tMODELS"); err != nil {
		return fmt.Errorf("write providers header row: %w", err)
	}

	for _, p := range providers {
		active := ""
		if p.ID == activeID {
			active = "*"
		}
		if err := writef(
			tw,
			"%s\t%s\t%s\t%t\t%s\t%s\n",
			p.ID,
			p.Name,
			p.Type,
			p.Available,
			active,
			strings.Join(p.Models, ", "),
		); err != nil {
			return fmt.Errorf("write providers row: %w", err)
		}
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush providers table: %w", err)
	}
	return nil
}

// runGenerate wires the same services the HTTP host uses and runs one request
// through the queue with a private worker.
func runGenerate(cmdCtx *commandContext, args []string) (err error) {
	opts, err := parseGenerateFlags(args)
	if err != nil {
		return err
	}

	cfg := cmdCtx.Config
	if opts.Timeout > 0 {
		cfg.Generate.Timeout = opts.Timeout
	}

	var deps bootstrap.ServiceDeps
	deps.Config = &cfg
	deps.Logger = cmdCtx.Logger
	if cfg.Events.Enabled {
		client, redisErr := maybeConnectRedis(cmdCtx.Ctx, cmdCtx.Logger, &cfg.Redis)
		switch {
		case redisErr == nil:
			deps.RedisClient = client
			defer closeRedis(client, cmdCtx.Logger)
		case errors.Is(redisErr, errRedisNotConfigured):
			cmdCtx.Logger.Info("no redis configuration detected; events will not be published")
		default:
			return redisErr
		}
	}

	svcs, err := bootstrap.NewServices(&deps)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := svcs.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	ctx, cancel := context.WithCancel(cmdCtx.Ctx)
	defer cancel()

	workerDone := make(chan error, 1)
	go func() {
		workerDone <- bootstrap.RunWorker(ctx, bootstrap.WorkerConfig{
			Jobs:         svcs.Jobs,
			Generator:    svcs.LLM.Active,
			Logger:       cmdCtx.Logger,
			IdleInterval: cfg.Worker.IdleInterval,
			Metrics:      svcs.Observability.Sink(),
		})
	}()

	resp, genErr := svcs.Generate.Generate(ctx, opts.ClientID, model.GenerateRequest{
		Prompt: opts.Prompt,
		Target: opts.Target,
	})
	cancel()
	if workerErr := <-workerDone; workerErr != nil {
		genErr = errors.Join(genErr, workerErr)
	}
	if genErr != nil {
		return fmt.Errorf("generate: %w", genErr)
	}

	if opts.JSON {
		return printJSON(cmdCtx.Out, resp)
	}
	return printGenerateResult(cmdCtx.Out, resp)
}

func printGenerateResult(w io.Writer, resp *model.GenerateResponse) error {
	if err := writef(w, "Job: %s\n", resp.JobID); err != nil {
		return err
	}
	for _, f := range resp.Files {
		if err := writef(w, "\n== %s (%s) ==\n%s\n", f.Path, f.Language, f.Content); err != nil {
			return fmt.Errorf("print file %s: %w", f.Path, err)
		}
	}
	if err := writef(w, "\n== git diff ==\n%s", resp.GitDiff); err != nil {
		return fmt.Errorf("print diff: %w", err)
	}
	return nil
}

func runValidate(cmdCtx *commandContext, args []string) error {
	opts, err := parseValidateFlags(args)
	if err != nil {
		return err
	}

	code, err := readSource(opts.File, cmdCtx.In)
	if err != nil {
		return err
	}

	resp := service.ValidateCode(model.ValidateCodeRequest{Code: code, Language: opts.Language})
	if opts.JSON {
		if err := printJSON(cmdCtx.Out, resp); err != nil {
			return err
		}
	} else if err := printValidation(cmdCtx.Out, resp); err != nil {
		return err
	}

	if !resp.Valid {
		return errValidationFailed
	}
	return nil
}

func printValidation(w io.Writer, resp model.ValidateCodeResponse) error {
	status := "valid"
	if !resp.Valid {
		status = "invalid"
	}
	if err := writef(w, "Result: %s\n", status); err != nil {
		return err
	}

	if len(resp.Errors) > 0 {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		if err := writeln(tw, "\nLINE\tCOL\tSEVERITY\tMESSAGE"); err != nil {
			return fmt.Errorf("write issues header row: %w", err)
		}
		for _, issue := range resp.Errors {
			if err := writef(tw, "%d\t%d\t%s\t%s\n", issue.Line, issue.Column, issue.Severity, issue.Message); err != nil {
				return fmt.Errorf("write issue row: %w", err)
			}
		}
		if err := tw.Flush(); err != nil {
			return fmt.Errorf("flush issues table: %w", err)
		}
	}

	for _, s := range resp.Suggestions {
		if err := writef(w, "suggestion: %s\n", s); err != nil {
			return err
		}
	}
	return nil
}

func readSource(path string, stdin io.Reader) (string, error) {
	if path == "" || path == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func parseProvidersFlags(args []string) (providersOptions, error) {
	fs := flag.NewFlagSet("providers", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts providersOptions
	fs.BoolVar(&opts.JSON, "json", false, "Print the provider listing as JSON")

	if err := fs.Parse(args); err != nil {
		return providersOptions{}, err
	}
	return opts, nil
}

func parseGenerateFlags(args []string) (generateOptions, error) {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		opts   generateOptions
		target string
	)
	fs.StringVar(&opts.Prompt, "prompt", "", "Natural-language description of the code to generate (required)")
	fs.StringVar(&target, "target", string(model.TargetBackend), "Target: frontend, backend, infra or sql")
	fs.DurationVar(&opts.Timeout, "timeout", 0, "Override GENERATE_TIMEOUT for this call")
	fs.StringVar(&opts.ClientID, "client-id", adminClientID, "Client id charged against the rate limit")
	fs.BoolVar(&opts.JSON, "json", false, "Print the generate response as JSON")

	if err := fs.Parse(args); err != nil {
		return generateOptions{}, err
	}

	opts.Prompt = strings.TrimSpace(opts.Prompt)
	if opts.Prompt == "" {
		return generateOptions{}, errors.New("--prompt is required")
	}
	opts.Target = model.Target(strings.ToLower(strings.TrimSpace(target)))
	if !opts.Target.Valid() {
		return generateOptions{}, fmt.Errorf("invalid --target %q (valid options: frontend, backend, infra, sql)", target)
	}
	if opts.Timeout < 0 {
		return generateOptions{}, errors.New("--timeout must not be negative")
	}
	if opts.ClientID = strings.TrimSpace(opts.ClientID); opts.ClientID == "" {
		opts.ClientID = adminClientID
	}
	return opts, nil
}

func parseValidateFlags(args []string) (validateOptions, error) {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts validateOptions
	fs.StringVar(&opts.File, "file", "-", "Path to the source file, or - for stdin")
	fs.StringVar(&opts.Language, "language", "typescript", "Source language (typescript and javascript get syntax checks)")
	fs.BoolVar(&opts.JSON, "json", false, "Print the validation response as JSON")

	if err := fs.Parse(args); err != nil {
		return validateOptions{}, err
	}
	return opts, nil
}
