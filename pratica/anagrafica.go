package pratica

import "time"

// Cliente and Debitore are registry rows: no state beyond active/inactive.
// They exist in the domain only as referenced endpoints of a Pratica and as
// delete-guard targets (a party with open pratiche cannot be removed).

type Cliente struct {
	ID            ClienteID
	Denominazione string
	Email         string
	Telefono      string
	Attivo        bool
	CreatedAt     time.Time
}

type Debitore struct {
	ID            DebitoreID
	Denominazione string
	CodiceFiscale string
	Telefono      string
	Attivo        bool
	CreatedAt     time.Time
}
