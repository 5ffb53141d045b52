package coord

import "fmt"

// Role — роль процесса в группе.
type Role int

const (
	RoleOrchestrator Role = iota
	RoleWorker
	RoleStandalone
)

func (r Role) String() string {
	switch r {
	case RoleOrchestrator:
		return "orchestrator"
	case RoleWorker:
		return "worker"
	case RoleStandalone:
		return "standalone"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// RoleFor вычисляет роль по rank и размеру группы.
//
//	size == 1           → standalone
//	rank == 0, size > 1 → orchestrator
//	rank >= 1           → worker (слот = rank)
func RoleFor(rank, size int) (Role, error) {
	if size < 1 {
		return 0, fmt.Errorf("%w: size %d", ErrInvalidTopology, size)
	}
	if rank < 0 || rank >= size {
		return 0, fmt.Errorf("%w: rank %d out of [0, %d)", ErrInvalidTopology, rank, size)
	}

	switch {
	case size == 1:
		return RoleStandalone, nil
	case rank == 0:
		return RoleOrchestrator, nil
	default:
		return RoleWorker, nil
	}
}
