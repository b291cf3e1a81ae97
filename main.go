// Command fieldgraph evaluates a field script and samples the blended
// attribute field at query points, printing the result as JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/chazu/fieldgraph/pkg/logger"
	"github.com/joho/godotenv"
)

func main() {
	envFile := flag.String("env", ".env", "dotenv file read before FIELD_* and LOG_* variables")
	script := flag.String("script", "", "field script to evaluate (or pass it as the first argument)")
	points := flag.String("points", "0,0,0", "query points as x,y,z;x,y,z")
	flag.Parse()

	_ = godotenv.Load(*envFile)
	log := logger.Setup()

	path := *script
	if path == "" {
		path = flag.Arg(0)
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "usage: fieldgraph [-env file] [-points x,y,z;...] -script file.field")
		os.Exit(2)
	}

	cfg, err := ConfigFromEnv(os.Getenv)
	if err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}
	app, err := NewApp(cfg, log)
	if err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}

	source, err := os.ReadFile(path)
	if err != nil {
		log.Error("read script", "path", path, "err", err)
		os.Exit(1)
	}
	pts, err := ParsePoints(*points)
	if err != nil {
		log.Error("points", "err", err)
		os.Exit(2)
	}

	out := struct {
		Eval    EvalResult `json:"eval"`
		Samples []Sample   `json:"samples"`
	}{Samples: []Sample{}}

	out.Eval = app.Evaluate(string(source))
	if len(out.Eval.Errors) == 0 {
		out.Samples, err = app.SampleAll(pts)
		if err != nil {
			log.Error("sample", "err", err)
			os.Exit(1)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Error("write output", "err", err)
		os.Exit(1)
	}
	if len(out.Eval.Errors) > 0 {
		os.Exit(1)
	}
}
