package inventory

import (
	"fmt"

	"github.com/jhoicas/bultos-api/internal/domain"
	"github.com/jhoicas/bultos-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ValidateSplit verifica que las cantidades de una división conserven el disponible del bulto:
// al menos una parte, todas positivas y suma(partes) == disponible.
func ValidateSplit(available decimal.Decimal, quantities []decimal.Decimal) error {
	if len(quantities) == 0 {
		return fmt.Errorf("%w: se requiere al menos una cantidad", domain.ErrInvalidInput)
	}
	sum := decimal.Zero
	for _, q := range quantities {
		if !q.IsPositive() {
			return fmt.Errorf("%w: las cantidades deben ser mayores a cero", domain.ErrInvalidInput)
		}
		sum = sum.Add(q)
	}
	if !sum.Equal(available) {
		return fmt.Errorf("%w: suma %s, disponible %s", domain.ErrQuantityMismatch, sum, available)
	}
	return nil
}

// CheckSplittable verifica que el bulto pueda dividirse: activo y fuera de pallet.
func CheckSplittable(lot *entity.Lot) error {
	if lot.OnPallet() || !lot.IsActive() {
		return domain.ErrLotLocked
	}
	return nil
}

// CheckReservable verifica que se puedan reservar quantity unidades del bulto.
func CheckReservable(lot *entity.Lot, quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return fmt.Errorf("%w: la cantidad debe ser mayor a cero", domain.ErrInvalidInput)
	}
	if lot.OnPallet() || !lot.IsActive() {
		return domain.ErrLotLocked
	}
	if quantity.GreaterThan(lot.AvailableQuantity) {
		return domain.ErrInsufficientQuantity
	}
	return nil
}

// ChildCode genera el identificador del hijo n (base 1) de una división.
func ChildCode(parentCode string, n int) string {
	return fmt.Sprintf("%s-%d", parentCode, n)
}
