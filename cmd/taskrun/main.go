// taskrun executes a task script against the platform backend. It is the
// interpreter scripts name on their shebang line.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/seqforge/taskkit/internal/bridge"
	"github.com/seqforge/taskkit/internal/cla"
	"github.com/seqforge/taskkit/internal/config"
	"github.com/seqforge/taskkit/internal/files"
	"github.com/seqforge/taskkit/internal/logging"
	"github.com/seqforge/taskkit/internal/metainfo"
	"github.com/seqforge/taskkit/internal/scripting"
	"github.com/seqforge/taskkit/internal/task"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "taskrun: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A .env next to the task is a convenience for local runs; absence is
	// not an error.
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", "", "config.toml path; environment is used when empty")
		fileID     = flag.Int64("file", 0, "platform id of the file being initialized")
		kind       = flag.String("kind", string(files.Raw), "kind of the file being initialized")
		workRoot   = flag.String("workdir", "", "task working directory; defaults to the current directory")
	)
	flag.Parse()
	if flag.NArg() != 1 {
		return fmt.Errorf("usage: taskrun [flags] <script>")
	}
	script := flag.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	log := logging.New()

	root := *workRoot
	if root == "" {
		if root, err = os.Getwd(); err != nil {
			return err
		}
	}
	wd, err := task.New(root)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	br := bridge.New(cfg)

	env := scripting.Env{Log: log, WorkDir: wd}
	meta := metainfo.New()
	if *fileID != 0 {
		file, err := files.New(*fileID, files.Kind(*kind), br, log, wd)
		if err != nil {
			return err
		}
		if meta, err = file.Metainfo(ctx); err != nil {
			return fmt.Errorf("fetch metainfo for file %d: %w", *fileID, err)
		}
		env.File = file
	}
	env.Tools = cla.NewContext(meta, cfg.ProgramsDir, log, cfg.Runner())

	rt, err := scripting.New(env)
	if err != nil {
		return err
	}
	return rt.RunFile(ctx, script)
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.FromEnv()
}
