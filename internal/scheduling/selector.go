package scheduling

import (
	"sort"

	"github.com/spec-kit/fieldconnect/internal/domain"
)

// SelectLeastLoadedSpecialist picks the candidate with the fewest open
// appointments at the requested date and slot. Ties go to the lowest
// identifier so repeated calls over the same pool agree. It reports false
// when the pool is empty.
func SelectLeastLoadedSpecialist(pool []domain.SpecialistLoad) (domain.SpecialistLoad, bool) {
	if len(pool) == 0 {
		return domain.SpecialistLoad{}, false
	}
	ranked := make([]domain.SpecialistLoad, len(pool))
	copy(ranked, pool)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Load != ranked[j].Load {
			return ranked[i].Load < ranked[j].Load
		}
		return ranked[i].SpecialistID < ranked[j].SpecialistID
	})
	return ranked[0], true
}
