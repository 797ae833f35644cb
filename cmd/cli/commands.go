package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"dagtemplate/internal/catalog"
	"dagtemplate/internal/config"
	"dagtemplate/internal/core"
	"dagtemplate/internal/graph"
	"dagtemplate/internal/ledger"
	"dagtemplate/internal/publish"
	"dagtemplate/internal/security"
	"dagtemplate/internal/storage"
)

func lookup(reg *catalog.Registry, id string) (*core.Job, error) {
	job, ok := reg.Get(id)
	if !ok {
		return nil, fmt.Errorf("job %q not registered", id)
	}
	return job, nil
}

func runList(reg *catalog.Registry) error {
	for _, job := range reg.List() {
		fmt.Printf("%-40s schedule=%-12q steps=%d version=%s\n",
			job.ID(), job.Schedule().String(), job.StepCount(), job.Version())
	}
	return nil
}

func runRender(reg *catalog.Registry, id, format string) error {
	job, err := lookup(reg, id)
	if err != nil {
		return err
	}
	if format == "dot" {
		return graph.WriteDOT(os.Stdout, job)
	}
	f, err := core.ParseFormat(format)
	if err != nil {
		return err
	}
	data, err := core.Encode(job, f)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

// runInspect accepts a registered id or a definition file path.
func runInspect(reg *catalog.Registry, target string) error {
	job, ok := reg.Get(target)
	if !ok {
		if _, isFile := core.FormatFromPath(target); !isFile {
			return fmt.Errorf("job %q not registered", target)
		}
		var err error
		if job, err = core.LoadJob(target); err != nil {
			return err
		}
	}

	report := graph.Inspect(job)
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	if !report.OK() {
		return fmt.Errorf("%s is not a valid single-sink DAG", job.ID())
	}
	return nil
}

func runNext(reg *catalog.Registry, id, count string) error {
	job, err := lookup(reg, id)
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(count)
	if err != nil || n < 1 {
		return fmt.Errorf("invalid count %q", count)
	}
	for _, t := range job.Schedule().Upcoming(time.Now(), n) {
		fmt.Println(t.Format(time.RFC3339))
	}
	return nil
}

// runExport writes every registered definition into the scanned directory
// and records each written document in the ledger.
func runExport(reg *catalog.Registry, store *storage.DefinitionStore, cfg config.AppConfig, format string) error {
	f, err := core.ParseFormat(format)
	if err != nil {
		return err
	}
	keys, created, err := security.EnsureKeyPair(cfg.KeysDir)
	if err != nil {
		return fmt.Errorf("ledger keys: %w", err)
	}
	if created {
		fmt.Println("Generated new ledger keys in", cfg.KeysDir)
	}
	led, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		return err
	}
	if err := led.VerifyWith(keys.Public); err != nil {
		return fmt.Errorf("refusing to extend ledger: %w", err)
	}
	led.Trust(keys.Public)

	for _, job := range reg.List() {
		path, data, err := store.Save(job, f)
		if err != nil {
			return err
		}
		e, recorded, err := led.Record(job, f, data, keys)
		if err != nil {
			return err
		}
		status := "unchanged"
		if recorded {
			status = "recorded"
		}
		fmt.Printf("✅ %s -> %s (entry %d, %s)\n", job.ID(), path, e.Index, status)
	}
	return nil
}

func runPublish(reg *catalog.Registry, cfg config.AppConfig, id string) error {
	job, err := lookup(reg, id)
	if err != nil {
		return err
	}
	producer, err := publish.NewProducer(cfg.BootstrapServers)
	if err != nil {
		return err
	}
	defer producer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := publish.NewPublisher(producer, cfg.Topic).Publish(ctx, job); err != nil {
		return err
	}
	fmt.Printf("✅ Published %s (%s) to %s\n", job.ID(), job.Version(), cfg.Topic)
	return nil
}

func runLedger(store *storage.DefinitionStore, cfg config.AppConfig, sub string) error {
	led, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}

	switch sub {
	case "inspect":
		for _, e := range led.Entries() {
			fmt.Printf("Index=%d Job=%s Version=%s Format=%s Hash=%s\n",
				e.Index, e.JobID, e.Version, e.Format, shortHash(e.Hash))
		}
		return nil
	case "verify":
		keys, err := security.LoadKeyPair(cfg.KeysDir)
		if err != nil {
			return fmt.Errorf("load trusted ledger key: %w", err)
		}
		if err := led.VerifyWith(keys.Public); err != nil {
			return fmt.Errorf("verification FAILED: %w", err)
		}
		if err := led.VerifyFiles(store); err != nil {
			return err
		}
		fmt.Println("✅ Ledger verification OK")
		return nil
	default:
		return fmt.Errorf("unknown ledger command %q", sub)
	}
}

// shortHash abbreviates a hash for display. Malformed hashes are shown whole.
func shortHash(h string) string {
	if len(h) < 16 {
		return h
	}
	return h[:16]
}
