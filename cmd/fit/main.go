// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/zintix-labs/footprob/errs"
	"github.com/zintix-labs/footprob/optimizer"
)

// 離線擬合：
//
//	go run ./cmd/fit -csv data/historico.csv -kind isotonic -outdir calibration
//	go run ./cmd/fit -csv data/poisson_inputs.csv -kind lambda3 -outdir build
func main() {
	cfg := bindVar()
	if err := cfg.run(); err != nil {
		log.Fatal(err)
	}
}

type config struct {
	csv        string
	kind       string
	outdir     string
	minSamples int
}

func bindVar() *config {
	cfg := new(config)
	flag.StringVar(&cfg.csv, "csv", "", "history csv (league_id, probabilities, goals or results, lambdas)")
	flag.StringVar(&cfg.kind, "kind", "isotonic", "isotonic, logistic or lambda3")
	flag.StringVar(&cfg.outdir, "outdir", "calibration", "output directory")
	flag.IntVar(&cfg.minSamples, "min-samples", 0, "minimum rows per league (0 uses 150 for calibrators, 30 for lambda3)")
	flag.Parse()
	return cfg
}

func (cfg *config) run() error {
	if cfg.csv == "" {
		return errs.Kindf(errs.Config, "-csv is required")
	}
	f, err := os.Open(cfg.csv)
	if err != nil {
		return errs.WrapKind(err, errs.MissingInput, "open "+cfg.csv)
	}
	defer f.Close()
	rows, err := optimizer.ReadHistory(f)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.outdir, 0o755); err != nil {
		return errs.Wrap(err, "create "+cfg.outdir)
	}

	green := "\033[1;32m"
	reset := "\033[0m"
	p := message.NewPrinter(language.English)
	p.Printf("%s[CSV:%s] [ROWS:%d] [KIND:%s]%s\n", green, cfg.csv, len(rows), cfg.kind, reset)

	switch cfg.kind {
	case "lambda3":
		return cfg.fitLambda3(p, rows)
	case "isotonic", "logistic":
		return cfg.fitCalibrators(p, rows)
	}
	return errs.Kindf(errs.Config, "unknown -kind %q", cfg.kind)
}

func (cfg *config) fitLambda3(p *message.Printer, rows []optimizer.Row) error {
	rep, err := optimizer.FitLambda3(optimizer.Samples(rows), optimizer.Options{MinRows: cfg.minSamples})
	if err != nil {
		return err
	}
	for _, fit := range rep.Fits {
		p.Printf("[λ3] league %s: %.4f (n=%d, upper=%.4f)\n", fit.League, fit.Lambda3, fit.Rows, fit.Upper)
	}
	for lg, e := range rep.Failed {
		p.Printf("[warn] league %s: %s\n", lg, e)
	}
	out := filepath.Join(cfg.outdir, "lambda3.yaml")
	if err := writeYAML(out, rep); err != nil {
		return err
	}
	p.Printf("saved %s (%d leagues; skipped=%d)\n", out, len(rep.Fits), len(rep.Skipped))
	return nil
}

// manifest 記錄這次輸出的檔案
type manifest struct {
	Method     string            `json:"method"`
	MinSamples int               `json:"min_samples"`
	OutputDir  string            `json:"output_dir"`
	Files      []string          `json:"files"`
	Skipped    map[string]string `json:"skipped"`
}

func (cfg *config) fitCalibrators(p *message.Printer, rows []optimizer.Row) error {
	rep, err := optimizer.FitCalibrators(rows, optimizer.CalibOptions{Method: cfg.kind, MinSamples: cfg.minSamples})
	if err != nil {
		return err
	}
	m := manifest{Method: rep.Method, MinSamples: rep.MinSamples, OutputDir: cfg.outdir, Files: []string{}, Skipped: rep.Skipped}
	for _, fit := range rep.Fits {
		out := filepath.Join(cfg.outdir, fit.FileBase()+".yaml")
		if err := writeYAML(out, fit.Artifact); err != nil {
			return err
		}
		m.Files = append(m.Files, out)
		p.Printf("  ✓ %s (n=%d)\n", out, fit.Artifact.Samples)
	}
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errs.Wrap(err, "encode manifest")
	}
	out := filepath.Join(cfg.outdir, "manifest.json")
	if err := os.WriteFile(out, raw, 0o644); err != nil {
		return errs.Wrap(err, "write "+out)
	}
	p.Printf("saved %d calibrators, skipped %d, manifest %s\n", len(m.Files), len(rep.Skipped), out)
	return nil
}

func writeYAML(path string, v any) error {
	raw, err := yaml.Marshal(v)
	if err != nil {
		return errs.Wrap(err, fmt.Sprintf("encode %s", path))
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return errs.Wrap(err, "write "+path)
	}
	return nil
}
