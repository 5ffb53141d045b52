package config

import (
	"fmt"
	"os"
	"strconv"
)

// rankSources — переменные, в которых launcher'ы передают rank и size.
// Проверяются по порядку, побеждает первая пара.
var rankSources = []struct{ rank, size string }{
	{"OMPI_COMM_WORLD_RANK", "OMPI_COMM_WORLD_SIZE"},
	{"PMI_RANK", "PMI_SIZE"},
	{"FRAUD_RANK", "FRAUD_SIZE"},
}

// Placement — место процесса в группе.
type Placement struct {
	Rank int
	Size int

	// Source — переменная, из которой взят rank ("" — не найдено).
	Source string
}

// DiscoverPlacement ищет rank и size в окружении процесса.
func DiscoverPlacement() (Placement, error) {
	return discoverPlacement(os.LookupEnv)
}

func discoverPlacement(lookup func(string) (string, bool)) (Placement, error) {
	for _, src := range rankSources {
		rankStr, ok := lookup(src.rank)
		if !ok {
			continue
		}
		sizeStr, ok := lookup(src.size)
		if !ok {
			return Placement{}, fmt.Errorf("%w: %s is set but %s is not", ErrInvalid, src.rank, src.size)
		}

		rank, err := strconv.Atoi(rankStr)
		if err != nil {
			return Placement{}, fmt.Errorf("%w: %s=%q", ErrInvalid, src.rank, rankStr)
		}
		size, err := strconv.Atoi(sizeStr)
		if err != nil {
			return Placement{}, fmt.Errorf("%w: %s=%q", ErrInvalid, src.size, sizeStr)
		}

		return Placement{Rank: rank, Size: size, Source: src.rank}, nil
	}

	return Placement{}, nil
}
