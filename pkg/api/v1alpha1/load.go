package v1alpha1

import (
	"bytes"
	"fmt"
	"os"

	"k8s.io/apimachinery/pkg/util/json"
	"sigs.k8s.io/yaml"
)

// LoadGraph parses a graph from YAML or JSON and validates it.
func LoadGraph(data []byte) (*Graph, error) {
	j, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse graph: %w", err)
	}

	g := &Graph{}
	if err := json.Unmarshal(j, g); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}

	return g, nil
}

// LoadGraphFile loads a graph from a file.
func LoadGraphFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file %q: %w", path, err)
	}
	return LoadGraph(data)
}

// LoadTransactions parses a transaction stream from YAML or JSON. The stream is either a list of
// transactions or a single transaction.
func LoadTransactions(data []byte) ([]Transaction, error) {
	j, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transactions: %w", err)
	}

	txs := []Transaction{}
	j = bytes.TrimSpace(j)
	switch {
	case len(j) == 0 || bytes.Equal(j, []byte("null")):
		return txs, nil
	case j[0] == '[':
		if err := json.Unmarshal(j, &txs); err != nil {
			return nil, fmt.Errorf("failed to decode transactions: %w", err)
		}
	default:
		tx := Transaction{}
		if err := json.Unmarshal(j, &tx); err != nil {
			return nil, fmt.Errorf("failed to decode transaction: %w", err)
		}
		txs = append(txs, tx)
	}

	for i := range txs {
		if err := txs[i].Validate(); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
	}

	return txs, nil
}

// LoadTransactionsFile loads a transaction stream from a file.
func LoadTransactionsFile(path string) ([]Transaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction file %q: %w", path, err)
	}
	return LoadTransactions(data)
}
