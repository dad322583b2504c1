package models

// GICS sector names as they appear in the S&P 500 constituents table.
const (
	SectorInformationTechnology = "Information Technology"
	SectorHealthCare            = "Health Care"
	SectorFinancials            = "Financials"
	SectorConsumerDiscretionary = "Consumer Discretionary"
	SectorCommunication         = "Communication Services"
	SectorIndustrials           = "Industrials"
	SectorConsumerStaples       = "Consumer Staples"
	SectorEnergy                = "Energy"
	SectorUtilities             = "Utilities"
	SectorRealEstate            = "Real Estate"
	SectorMaterials             = "Materials"
)

// DefaultSectors is the tracked set used when none is configured.
func DefaultSectors() []string {
	return []string{
		SectorInformationTechnology,
		SectorConsumerDiscretionary,
		SectorConsumerStaples,
		SectorEnergy,
		SectorUtilities,
		SectorMaterials,
	}
}

// AllSectors lists every GICS sector.
func AllSectors() []string {
	return []string{
		SectorInformationTechnology,
		SectorHealthCare,
		SectorFinancials,
		SectorConsumerDiscretionary,
		SectorCommunication,
		SectorIndustrials,
		SectorConsumerStaples,
		SectorEnergy,
		SectorUtilities,
		SectorRealEstate,
		SectorMaterials,
	}
}
