package inventory

import "github.com/jhoicas/bultos-api/internal/domain/entity"

// CanStart indica si la pauta con SequenceOrder=order puede pasar a InProgress:
// toda pauta del mismo bulto con orden menor debe estar completada.
// instances son las pautas que comparten el bulto (puede incluir la propia).
func CanStart(instances []entity.Pauta, order int) bool {
	for _, p := range instances {
		if p.SequenceOrder < order && p.Status != entity.ProcessCompleted {
			return false
		}
	}
	return true
}

// CanStartStep indica si el paso con ese orden puede iniciar: es el primero o el anterior
// está completado. Un orden inexistente no puede iniciar.
func CanStartStep(steps []entity.StepRecord, order int) bool {
	if order <= 1 {
		return order == 1
	}
	for _, s := range steps {
		if s.Order == order-1 {
			return s.Status == entity.ProcessCompleted
		}
	}
	return false
}
