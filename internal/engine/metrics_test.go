package engine

import "testing"

func TestRegressionMetricsTableLayout(t *testing.T) {
	m := NewRegressionMetrics(2, []string{"a", "b"})
	m.Record(0, []float64{0.5, 0.6}, []float64{0.7, 0.8})
	m.Record(1, []float64{0.1, 0.2}, []float64{0.3, 0.4})

	table := m.Table()

	wantColumns := []string{"is_training", "mse_a", "mse_b"}
	if len(table.Columns) != len(wantColumns) {
		t.Fatalf("columns = %v, want %v", table.Columns, wantColumns)
	}
	for i, name := range wantColumns {
		if table.Columns[i] != name {
			t.Fatalf("columns[%d] = %s, want %s", i, table.Columns[i], name)
		}
	}
	if !table.IntColumns["is_training"] {
		t.Fatal("is_training should be an integer column")
	}

	// Testing rows (is_training = 0) come first, then training rows.
	if len(table.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(table.Rows))
	}
	if table.Rows[0][0] != 0 || table.Rows[1][0] != 0 {
		t.Fatal("expected the testing block first")
	}
	if table.Rows[2][0] != 1 || table.Rows[3][0] != 1 {
		t.Fatal("expected the training block second")
	}
	if table.Rows[0][1] != 0.7 || table.Rows[2][1] != 0.5 {
		t.Fatalf("unexpected epoch 0 values: testing %f, training %f",
			table.Rows[0][1], table.Rows[2][1])
	}
}

func TestAdversarialMetricsTable(t *testing.T) {
	m := NewAdversarialMetrics(1)
	m.Record(0, AdversarialEpoch{
		TrainingDiscriminatorRealLoss:      0.1,
		TrainingDiscriminatorGeneratedLoss: 0.2,
		TrainingGeneratorLoss:              0.3,
		TestingDiscriminatorRealLoss:       0.4,
		TestingDiscriminatorGeneratedLoss:  0.5,
		TestingGeneratorLoss:               0.6,
		NumTrainingSamples:                 100,
		NumDiscriminatorPaused:             20,
		NumGeneratorPaused:                 30,
	})

	table := m.Table()
	if len(table.Columns) != 9 {
		t.Fatalf("expected 9 columns, got %d", len(table.Columns))
	}
	if len(table.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(table.Rows))
	}

	row := table.Rows[0]
	want := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 100, 20, 30}
	for i, v := range want {
		if row[i] != v {
			t.Fatalf("row[%d] = %f, want %f", i, row[i], v)
		}
	}

	for _, name := range []string{
		"num_training_samples",
		"num_discriminator_training_paused",
		"num_generator_training_paused",
	} {
		if !table.IntColumns[name] {
			t.Fatalf("%s should be an integer column", name)
		}
	}
}
