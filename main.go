/*
Copyright 2022 The l7mp/stunner team.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap/zapcore"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	"sigs.k8s.io/yaml"

	"github.com/l7mp/pipelet/internal/buildinfo"
	"github.com/l7mp/pipelet/pkg/api/v1alpha1"
	"github.com/l7mp/pipelet/pkg/engine"
	"github.com/l7mp/pipelet/pkg/pipelet"
	"github.com/l7mp/pipelet/pkg/visualize"
)

var (
	version    = "dev"
	commitHash = "n/a"
	buildDate  = "<unknown>"
)

type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	var graphFile, txFile, dotFile, mermaidFile, metricsAddr string
	var watches stringList

	flag.StringVar(&graphFile, "graph", "", "The graph definition file (YAML or JSON).")
	flag.StringVar(&txFile, "transactions", "", "The transaction stream to apply (YAML or JSON).")
	flag.StringVar(&dotFile, "dot", "", "Write the graph as a Graphviz DOT diagram to the given file.")
	flag.StringVar(&mermaidFile, "mermaid", "", "Write the graph as a Mermaid diagram to the given file.")
	flag.Var(&watches, "watch", "Log the deltas emitted by the named node (can be repeated).")
	flag.StringVar(&metricsAddr, "metrics-bind-address", "",
		"Serve metrics on the given address after the transactions were applied.")

	opts := zap.Options{
		Development:     true,
		DestWriter:      os.Stderr,
		StacktraceLevel: zapcore.Level(3),
		TimeEncoder:     zapcore.RFC3339NanoTimeEncoder,
	}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()

	logger := zap.New(zap.UseFlagOptions(&opts))
	setupLog := logger.WithName("setup")

	buildInfo := buildinfo.BuildInfo{Version: version, CommitHash: commitHash, BuildDate: buildDate}
	setupLog.Info(fmt.Sprintf("starting pipelet %s", buildInfo.String()))

	if graphFile == "" {
		setupLog.Error(errors.New("missing -graph"), "a graph definition is required")
		os.Exit(1)
	}

	if err := run(logger, graphFile, txFile, dotFile, mermaidFile, metricsAddr, watches); err != nil {
		setupLog.Error(err, "pipelet failed")
		os.Exit(1)
	}
}

func run(logger logr.Logger, graphFile, txFile, dotFile, mermaidFile, metricsAddr string, watches []string) error {
	log := logger.WithName("pipelet")

	g, err := v1alpha1.LoadGraphFile(graphFile)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	e, err := engine.New(g, logger, engine.WithRegistry(reg))
	if err != nil {
		return err
	}

	if err := writeDiagrams(e, dotFile, mermaidFile); err != nil {
		return err
	}

	for _, name := range watches {
		watchLog := log.WithValues("watch", name)
		if _, err := e.Watch(name, func(d pipelet.Delta) error {
			watchLog.Info("delta", "action", d.Kind.String(), "size", d.Len(), "delta", d.String())
			return nil
		}); err != nil {
			return err
		}
	}

	if txFile != "" {
		txs, err := v1alpha1.LoadTransactionsFile(txFile)
		if err != nil {
			return err
		}

		for i, tx := range txs {
			if err := e.Apply(tx); err != nil {
				// a failed transaction leaves the graph usable
				log.Error(err, "transaction failed", "index", i, "target", tx.Target)
			}
		}
		log.Info("transactions applied", "transactions", len(txs))
	}

	if err := printState(e, os.Stdout); err != nil {
		return err
	}

	if metricsAddr != "" {
		return serveMetrics(log, reg, metricsAddr)
	}

	return nil
}

func writeDiagrams(e *engine.Engine, dotFile, mermaidFile string) error {
	if dotFile == "" && mermaidFile == "" {
		return nil
	}

	g, err := visualize.BuildGraph(e)
	if err != nil {
		return err
	}

	if dotFile != "" {
		if err := os.WriteFile(dotFile, []byte((&visualize.DotGenerator{}).Generate(g)), 0o644); err != nil { //nolint:gosec
			return fmt.Errorf("failed to write DOT diagram: %w", err)
		}
	}

	if mermaidFile != "" {
		if err := os.WriteFile(mermaidFile, []byte((&visualize.MermaidGenerator{}).Generate(g)), 0o644); err != nil { //nolint:gosec
			return fmt.Errorf("failed to write Mermaid diagram: %w", err)
		}
	}

	return nil
}

// printState writes the content of every stateful and filtered node as YAML.
func printState(e *engine.Engine, w io.Writer) error {
	state := map[string]any{}
	for _, name := range e.Nodes() {
		kind, err := e.Kind(name)
		if err != nil {
			return err
		}
		if kind != v1alpha1.KindSet && kind != v1alpha1.KindFilter {
			continue
		}

		vals, err := e.Get(name)
		if err != nil {
			return err
		}
		state[name] = vals
	}

	out, err := yaml.Marshal(state)
	if err != nil {
		return err
	}

	_, err = w.Write(out)
	return err
}

func serveMetrics(log logr.Logger, reg *prometheus.Registry, addr string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	log.Info("serving metrics", "address", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
