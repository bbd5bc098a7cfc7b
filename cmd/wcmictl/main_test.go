package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunRequiresCommand(t *testing.T) {
	err := run(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "usage:") {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	err := run(context.Background(), []string{"evolve"})
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestStatsCommandFailsLoudly(t *testing.T) {
	if err := run(context.Background(), []string{"stats"}); err == nil {
		t.Fatal("expected the stats action to fail")
	}
}

func TestTrainCommandValidatesFlags(t *testing.T) {
	err := run(context.Background(), []string{"train", "-save-model", "m.json"})
	if err == nil || !strings.Contains(err.Error(), "--load-data") {
		t.Fatalf("expected missing load-data error, got %v", err)
	}
}

func TestTrainAndRunCommandsEndToEnd(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "data.csv")
	modelPath := filepath.Join(dir, "model.json")
	outPath := filepath.Join(dir, "out.csv")

	var b strings.Builder
	b.WriteString("turns_tx,turns_rx,radius_tx_mm,radius_rx_mm,distance_mm,frequency_khz,load_ohm,efficiency,power_out_w,voltage_out_v,current_out_a,coupling_k\n")
	for i := 0; i < 16; i++ {
		row := make([]string, 12)
		for j := range row {
			row[j] = fmt.Sprintf("%f", float64(i+j+1))
		}
		b.WriteString(strings.Join(row, ",") + "\n")
	}
	if err := os.WriteFile(dataPath, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	err := run(context.Background(), []string{
		"train",
		"-gan=false",
		"-load-data", dataPath,
		"-save-model", modelPath,
		"-num-epochs", "1",
		"-batch-size", "4",
		"-status-every-epoch", "0",
	})
	if err != nil {
		t.Fatalf("train command: %v", err)
	}

	err = run(context.Background(), []string{
		"run",
		"-gan=false",
		"-load-model", modelPath,
		"-load-data", dataPath,
		"-save-data", outPath,
		"-output-keep-out-of-bounds-samples",
	})
	if err != nil {
		t.Fatalf("run command: %v", err)
	}

	out, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("run output not written: %v", err)
	}
	if !strings.Contains(strings.SplitN(string(out), "\n", 2)[0], "pred_turns_tx") {
		t.Fatalf("expected predicted columns in header: %q", strings.SplitN(string(out), "\n", 2)[0])
	}
}
