package models

import (
	"fmt"
	"strings"
)

// Office is one of the fixed elected positions a ballot may vote for.
type Office string

const (
	OfficePresident     Office = "president"
	OfficeVicePresident Office = "vice_president"
	OfficeSecretary     Office = "secretary"
	OfficeTreasurer     Office = "treasurer"
	OfficeAuditor       Office = "auditor"
	OfficeCouncilor     Office = "councilor"
)

// AllOffices lists every office in display order. Aggregations iterate this
// slice so each office is handled by the same code path.
var AllOffices = []Office{
	OfficePresident,
	OfficeVicePresident,
	OfficeSecretary,
	OfficeTreasurer,
	OfficeAuditor,
	OfficeCouncilor,
}

var officeLabels = map[Office]string{
	OfficePresident:     "Président",
	OfficeVicePresident: "Vice-président",
	OfficeSecretary:     "Secrétaire général",
	OfficeTreasurer:     "Trésorier",
	OfficeAuditor:       "Commissaire aux comptes",
	OfficeCouncilor:     "Conseiller",
}

// legacy keys accepted from older clients
var officeAliases = map[string]Office{
	"vice-president": OfficeVicePresident,
	"vicepresident":  OfficeVicePresident,
	"secretaire":     OfficeSecretary,
	"tresorier":      OfficeTreasurer,
	"commissaire":    OfficeAuditor,
	"conseiller":     OfficeCouncilor,
	"president":      OfficePresident,
}

// Label returns the display label of the office.
func (o Office) Label() string {
	if l, ok := officeLabels[o]; ok {
		return l
	}
	return string(o)
}

// Valid reports whether o is part of the office enumeration.
func (o Office) Valid() bool {
	_, ok := officeLabels[o]
	return ok
}

// Index returns the display position of o, or -1.
func (o Office) Index() int {
	for i, v := range AllOffices {
		if v == o {
			return i
		}
	}
	return -1
}

// ParseOffice accepts the canonical key, the display label, or a legacy key.
func ParseOffice(s string) (Office, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if o := Office(key); o.Valid() {
		return o, nil
	}
	if o, ok := officeAliases[key]; ok {
		return o, nil
	}
	for o, label := range officeLabels {
		if strings.EqualFold(label, strings.TrimSpace(s)) {
			return o, nil
		}
	}
	return "", fmt.Errorf("unknown office %q", s)
}
