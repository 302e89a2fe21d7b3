package rules

// Default returns the membership-form rule set used when no rule file exists
func Default() []Definition {
	const oui, non = "Oui", "Non"

	text := func(name, pattern string) Definition {
		return Definition{Name: name, Type: KindText, Pattern: pattern}
	}
	number := func(name, pattern string) Definition {
		return Definition{Name: name, Type: KindNumber, Pattern: pattern}
	}
	checkbox := func(name, pattern, checked, unchecked string) Definition {
		return Definition{
			Name:           name,
			Type:           KindCheckbox,
			Pattern:        pattern,
			CheckedValue:   &checked,
			UncheckedValue: &unchecked,
		}
	}

	return []Definition{
		text("Nom", `(?:^|[^\p{L}])Nom\s*:\s*([^\n]+)`),
		text("Prenom", `Pr[ée]nom\s*:\s*([^\n]+)`),
		text("DateNaissance", `Date\s+de\s+naissance\s*:\s*([^\n]+)`),
		text("Adresse", `Adresse\s*:\s*([^\n]+)`),
		number("CodePostal", `Code\s*Postal\s*:\s*([0-9]{4,5})`),
		text("Ville", `Ville\s*:\s*([^\n]+)`),
		number("Telephone", `T[ée]l[ée]phone\s*:\s*([^\n]+)`),
		text("Email", `Email\s*:\s*([^\n]+)`),
		checkbox("StatutAdhesion", `Nouvel\s+adh[ée]rent[^\n]*?[xX✓✔☑]`, "Nouvel", "Renouvellement"),
		checkbox("BadgeCaution", `Caution\s+pour\s+badge[^\n]*?[xX✓✔☑]`, oui, non),
		checkbox("CleCaution", `Caution\s+pour\s+cl[ée][^\n]*?[xX✓✔☑]`, oui, non),
		text("Total", `TOTAL\s*-\s*([^\n]+)`),
		text("DateInscription", `Date\s+d['’]inscription\s*:\s*([^\n]+)`),
		text("NomResponsableLegal", `Nom\s+du\s+responsable\s+l[ée]gal\s*:\s*([^\n]+)`),
		number("TelResponsableLegal", `T[ée]l[ée]phone\s+du\s+responsable\s+l[ée]gal\s*:\s*([^\n]+)`),
		text("EmailResponsableLegal", `Email\s+du\s+responsable\s+l[ée]gal\s*:\s*([^\n]+)`),
		text("AutresRemarques", `Autres\s+remarques\s*:\s*([^\n]+)`),
	}
}
