package db

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Spok95/volunteer-slots/internal/models"
)

type trainingSeed struct {
	Items []models.TrainingItem `yaml:"items"`
}

// ParseTrainingItems — справочник чек-листа из YAML:
//
//	items:
//	  - label: Sicurezza in acqua
//	    sort: 10
//
// Пустые и повторяющиеся label — ошибка. Без sort — порядок файла.
func ParseTrainingItems(r io.Reader) ([]models.TrainingItem, error) {
	var seed trainingSeed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("parse training items: %w", err)
	}

	seen := make(map[string]bool, len(seed.Items))
	out := make([]models.TrainingItem, 0, len(seed.Items))
	for i, it := range seed.Items {
		it.Label = strings.TrimSpace(it.Label)
		if it.Label == "" {
			return nil, fmt.Errorf("items[%d]: empty label", i)
		}
		key := strings.ToLower(it.Label)
		if seen[key] {
			return nil, fmt.Errorf("items[%d]: duplicate label %q", i, it.Label)
		}
		seen[key] = true
		if it.Sort == 0 {
			it.Sort = (i + 1) * 10
		}
		out = append(out, it)
	}
	return out, nil
}

func LoadTrainingItemsFile(path string) ([]models.TrainingItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ParseTrainingItems(f)
}
