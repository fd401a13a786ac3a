package scoring

import "logistics-sla-reconciler/internal/models"

const (
	// StagnantDays is the idle span at which an in-transit shipment is stagnant
	StagnantDays = 3
	// WatchIdleDays is the idle span that raises risk to MEDIUM
	WatchIdleDays = 2
	// WatchConsumedPercent is the SLA consumption that raises risk to MEDIUM
	WatchConsumedPercent = 75
)

// Suggested actions, in rule order
const (
	ActionLostInWarehouse = "URGENTE: Bulto extraviado en Depósito (+72hs)"
	ActionVerifyDispatch  = "Verificar Despacho / Manifiesto"
	ActionStagnationClaim = "Reclamo Estancamiento Urbano (+72hs)"
	ActionPrioritize      = "Priorizar Entrega (Vencido)"
	ActionLoadReference   = "Cargar referencia interna"
	ActionAnalyzeReturn   = "Analizar Devolución"
	ActionThirdVisit      = "Gestionar 3ra visita"
	ActionFollowUp        = "Seguimiento normal"
)

// Flags are the boolean facts status determination depends on
type Flags struct {
	Delivered bool
	Returned  bool
	Stagnant  bool
	Ghost     bool
	Orphan    bool
}

// DetermineStatus applies the status rules top to bottom; the first match wins
func DetermineStatus(realDays, targetDays int, f Flags) models.Status {
	if f.Ghost {
		return models.StatusFantasma
	}
	if f.Orphan {
		return models.StatusHuerfano
	}

	if f.Delivered {
		if realDays > targetDays {
			return models.StatusEntregadoFueraDeSLA
		}
		return models.StatusEnSLA
	}
	if f.Returned {
		return models.StatusDevuelto
	}

	if f.Stagnant {
		return models.StatusEstancado
	}
	if realDays > targetDays {
		return models.StatusNoEntregadoDemorado
	}

	return models.StatusPendiente
}

// CalculateRisk returns the highest risk level whose condition holds
func CalculateRisk(status models.Status, idleDays int, consumedPercent float64, hasTwoVisits bool) models.RiskLevel {
	if status == models.StatusNoEntregadoDemorado ||
		status == models.StatusEstancado ||
		(status == models.StatusFantasma && idleDays >= StagnantDays) ||
		(hasTwoVisits && status != models.StatusDevuelto && status != models.StatusEnSLA && status != models.StatusEntregadoFueraDeSLA) {
		return models.RiskCritical
	}

	if status == models.StatusFantasma ||
		status == models.StatusHuerfano ||
		consumedPercent >= WatchConsumedPercent ||
		idleDays >= WatchIdleDays {
		return models.RiskMedium
	}

	return models.RiskLow
}

// SuggestAction derives the follow-up hint from a record whose status and
// flags are already set
func SuggestAction(r *models.MasterRecord) string {
	if r.Status == models.StatusFantasma {
		if r.DiasSinMovimiento >= StagnantDays {
			return ActionLostInWarehouse
		}
		return ActionVerifyDispatch
	}
	if r.Status == models.StatusEstancado {
		return ActionStagnationClaim
	}
	if r.Status == models.StatusNoEntregadoDemorado {
		return ActionPrioritize
	}
	if r.IsHuerfano {
		return ActionLoadReference
	}
	if r.IsDevuelto {
		return ActionAnalyzeReturn
	}
	if r.HasTwoVisits {
		return ActionThirdVisit
	}
	return ActionFollowUp
}
