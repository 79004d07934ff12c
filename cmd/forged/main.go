// forged is an in-memory stand-in for the platform backend proxy, meant for
// developing and debugging task scripts without a real deployment.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/seqforge/taskkit/internal/auth"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "forged: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	var (
		addr  = flag.String("addr", ":8888", "listen address")
		data  = flag.String("data", "", "optional JSON file seeding the object store")
		token = flag.String("token", os.Getenv("TASKKIT_TOKEN"), "task token to require, empty disables the check")
	)
	flag.Parse()

	st := newStore()
	if *data != "" {
		if err := st.load(*data); err != nil {
			return err
		}
	}
	var tokens auth.Validator = auth.AllowAll{}
	if *token != "" {
		tokens = auth.StaticToken{Token: *token}
	}
	return newRouter(st, tokens).Run(*addr)
}
