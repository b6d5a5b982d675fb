package services

import (
	"fmt"

	"pricing-system/internal/models"
)

// PlanCrew согласует запрошенный размер бригады с нагрузкой.
// Планирование только увеличивает бригаду, никогда не уменьшает заданный
// человеком размер. Если ни одна настроенная способность не выдерживает
// нагрузку, возвращается CapacityExceededError с величиной превышения.
func PlanCrew(snapshot *models.ConfigurationSnapshot, request *models.EstimateRequest) (int, string, error) {
	requested := request.RequestedCrewSize
	if !snapshot.Policy.UseCrewAbilityLimits {
		return requested, "", nil
	}

	// Способности отсортированы по размеру бригады при сборке снимка
	loadFits := false
	for _, ability := range snapshot.CrewAbilities {
		if ability.MaxVolume < request.TotalVolume || ability.MaxWeight < request.TotalWeight {
			continue
		}
		if ability.CrewSize >= requested {
			note := ""
			if ability.CrewSize > requested {
				note = fmt.Sprintf("crew size escalated from %d to %d to handle the load", requested, ability.CrewSize)
			}
			return ability.CrewSize, note, nil
		}
		// Нагрузка помещается в меньшую бригаду; запрошенная тем более справится
		loadFits = true
	}

	if loadFits {
		return requested, "", nil
	}

	maxCrew := 0
	volumeShortfall := request.TotalVolume
	weightShortfall := request.TotalWeight
	if n := len(snapshot.CrewAbilities); n > 0 {
		largest := snapshot.CrewAbilities[n-1]
		maxCrew = largest.CrewSize
		volumeShortfall = request.TotalVolume - largest.MaxVolume
		weightShortfall = request.TotalWeight - largest.MaxWeight
	}
	if volumeShortfall < 0 {
		volumeShortfall = 0
	}
	if weightShortfall < 0 {
		weightShortfall = 0
	}

	return 0, "", &CapacityExceededError{
		RequestedCrewSize: requested,
		MaxCrewSize:       maxCrew,
		VolumeShortfall:   volumeShortfall,
		WeightShortfall:   weightShortfall,
	}
}
