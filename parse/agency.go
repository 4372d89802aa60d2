package parse

import (
	"strings"

	"tidbyt.dev/gtfsmeta/feed"
	"tidbyt.dev/gtfsmeta/model"
)

type AgencyCSV struct {
	ID       string `csv:"agency_id"`
	Name     string `csv:"agency_name"`
	URL      string `csv:"agency_url"`
	Timezone string `csv:"agency_timezone"`
	Lang     string `csv:"agency_lang"`
	// Phone    string `csv:"agency_phone"`
	// FareURL  string `csv:"agency_fare_url"`
	// Email    string `csv:"agency_email"`
}

func ParseAgency(data []byte) (*feed.Table[model.Agency], error) {
	header, agencyCsv, err := readCSV[AgencyCSV](data)
	if err != nil {
		return nil, err
	}

	agencies := make([]model.Agency, 0, len(agencyCsv))
	for _, a := range agencyCsv {
		agencies = append(agencies, model.Agency{
			ID:       strings.TrimSpace(a.ID),
			Name:     strings.TrimSpace(a.Name),
			URL:      strings.TrimSpace(a.URL),
			Timezone: strings.TrimSpace(a.Timezone),
			Lang:     strings.TrimSpace(a.Lang),
		})
	}

	return feed.NewTable(header, agencies), nil
}
