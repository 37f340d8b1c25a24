package core

// Address is a mailing or business address from a submission history.
type Address struct {
	AddressType               string `mapstructure:"-" json:"address_type"`
	Street1                   string `mapstructure:"street1" json:"street1"`
	Street2                   string `mapstructure:"street2" json:"street2,omitempty"`
	City                      string `mapstructure:"city" json:"city"`
	StateOrCountry            string `mapstructure:"stateOrCountry" json:"state_or_country"`
	ZipCode                   string `mapstructure:"zipCode" json:"zipcode"`
	StateOrCountryDescription string `mapstructure:"stateOrCountryDescription" json:"state_or_country_description"`
	IsForeignLocation         bool   `mapstructure:"isForeignLocation" json:"is_foreign_location"`
	ForeignStateTerritory     string `mapstructure:"foreignStateTerritory" json:"foreign_state_territory,omitempty"`
	Country                   string `mapstructure:"country" json:"country,omitempty"`
	CountryCode               string `mapstructure:"countryCode" json:"country_code,omitempty"`
}

// FormerName is a name the entity previously filed under.
type FormerName struct {
	Name     string `mapstructure:"name" json:"name"`
	FromDate string `mapstructure:"from" json:"from_date"`
	ToDate   string `mapstructure:"to" json:"to_date"`
}

// Filing is one row of the columnar recent-filings table.
type Filing struct {
	AccessionNumber       string `mapstructure:"accessionNumber" json:"accession_number"`
	FilingDate            string `mapstructure:"filingDate" json:"filing_date"`
	ReportDate            string `mapstructure:"reportDate" json:"report_date"`
	AcceptanceDateTime    string `mapstructure:"acceptanceDateTime" json:"acceptance_date_time"`
	Act                   string `mapstructure:"act" json:"act"`
	Form                  string `mapstructure:"form" json:"form"`
	FileNumber            string `mapstructure:"fileNumber" json:"file_number"`
	FilmNumber            string `mapstructure:"filmNumber" json:"film_number"`
	Items                 string `mapstructure:"items" json:"items"`
	CoreType              string `mapstructure:"core_type" json:"core_type"`
	Size                  int64  `mapstructure:"size" json:"size"`
	IsXBRL                bool   `mapstructure:"isXBRL" json:"is_xbrl"`
	IsInlineXBRL          bool   `mapstructure:"isInlineXBRL" json:"is_inline_xbrl"`
	PrimaryDocument       string `mapstructure:"primaryDocument" json:"primary_document"`
	PrimaryDocDescription string `mapstructure:"primaryDocDescription" json:"primary_doc_description"`
}

// File points at an additional page of older filings.
type File struct {
	Name        string `mapstructure:"name" json:"name"`
	FilingCount int    `mapstructure:"filingCount" json:"filing_count"`
	FilingFrom  string `mapstructure:"filingFrom" json:"filing_from"`
	FilingTo    string `mapstructure:"filingTo" json:"filing_to"`
}

// SubmissionHistory is the filing history and profile of one entity.
type SubmissionHistory struct {
	CIK                               string       `mapstructure:"cik" json:"cik"`
	EntityType                        string       `mapstructure:"entityType" json:"entity_type"`
	SIC                               string       `mapstructure:"sic" json:"sic"`
	SICDescription                    string       `mapstructure:"sicDescription" json:"sic_description"`
	OwnerOrg                          string       `mapstructure:"ownerOrg" json:"owner_org,omitempty"`
	InsiderTransactionForOwnerExists  bool         `mapstructure:"insiderTransactionForOwnerExists" json:"insider_transaction_for_owner_exists"`
	InsiderTransactionForIssuerExists bool         `mapstructure:"insiderTransactionForIssuerExists" json:"insider_transaction_for_issuer_exists"`
	Name                              string       `mapstructure:"name" json:"name"`
	Tickers                           []string     `mapstructure:"tickers" json:"tickers"`
	Exchanges                         []string     `mapstructure:"exchanges" json:"exchanges"`
	EIN                               string       `mapstructure:"ein" json:"ein,omitempty"`
	LEI                               string       `mapstructure:"lei" json:"lei,omitempty"`
	Description                       string       `mapstructure:"description" json:"description,omitempty"`
	Website                           string       `mapstructure:"website" json:"website,omitempty"`
	InvestorWebsite                   string       `mapstructure:"investorWebsite" json:"investor_website,omitempty"`
	Category                          string       `mapstructure:"category" json:"category"`
	FiscalYearEnd                     string       `mapstructure:"fiscalYearEnd" json:"fiscal_year_end"`
	StateOfIncorporation              string       `mapstructure:"stateOfIncorporation" json:"state_of_incorporation"`
	StateOfIncorporationDescription   string       `mapstructure:"stateOfIncorporationDescription" json:"state_of_incorporation_description"`
	Addresses                         []Address    `mapstructure:"-" json:"addresses"`
	Phone                             string       `mapstructure:"phone" json:"phone"`
	Flags                             string       `mapstructure:"flags" json:"flags"`
	FormerNames                       []FormerName `mapstructure:"formerNames" json:"former_names"`
	Filings                           []Filing     `mapstructure:"-" json:"filings"`
	Files                             []File       `mapstructure:"-" json:"files"`
}

// UnitDisclosure is one reported value of a concept in a given unit.
type UnitDisclosure struct {
	Unit       string  `mapstructure:"-" json:"units"`
	End        string  `mapstructure:"end" json:"end"`
	Value      float64 `mapstructure:"val" json:"val"`
	Accession  string  `mapstructure:"accn" json:"accn"`
	FiscalYear int     `mapstructure:"fy" json:"fy,omitempty"`
	FiscalPart string  `mapstructure:"fp" json:"fp,omitempty"`
	Form       string  `mapstructure:"form" json:"form"`
	Filed      string  `mapstructure:"filed" json:"filed"`
	Frame      string  `mapstructure:"frame" json:"frame,omitempty"`
	Start      string  `mapstructure:"start" json:"start,omitempty"`
}

// CompanyConcept holds every disclosure one entity made for one concept.
type CompanyConcept struct {
	CIK         string           `mapstructure:"cik" json:"cik"`
	Taxonomy    string           `mapstructure:"taxonomy" json:"taxonomy"`
	Tag         string           `mapstructure:"tag" json:"tag"`
	Label       string           `mapstructure:"label" json:"label"`
	Description string           `mapstructure:"description" json:"description"`
	EntityName  string           `mapstructure:"entityName" json:"entity_name"`
	Units       []UnitDisclosure `mapstructure:"-" json:"units"`
}

// TaxonomyDisclosures holds the disclosures for one tag within a taxonomy.
type TaxonomyDisclosures struct {
	Tag         string           `mapstructure:"-" json:"tag"`
	Label       string           `mapstructure:"label" json:"label"`
	Description string           `mapstructure:"description" json:"description"`
	Units       []UnitDisclosure `mapstructure:"-" json:"units"`
}

// TaxonomyFacts groups the disclosures of one taxonomy, such as us-gaap or dei.
type TaxonomyFacts struct {
	Taxonomy    string                `json:"taxonomy"`
	Disclosures []TaxonomyDisclosures `json:"disclosures"`
}

// CompanyFacts holds every concept one entity has disclosed.
type CompanyFacts struct {
	CIK        string          `mapstructure:"cik" json:"cik"`
	EntityName string          `mapstructure:"entityName" json:"entity_name"`
	Facts      []TaxonomyFacts `mapstructure:"-" json:"facts"`
}

// FrameDisclosure is one entity's value within a frame.
type FrameDisclosure struct {
	Accession  string  `mapstructure:"accn" json:"accn"`
	CIK        string  `mapstructure:"cik" json:"cik"`
	EntityName string  `mapstructure:"entityName" json:"entity_name"`
	Location   string  `mapstructure:"loc" json:"loc"`
	End        string  `mapstructure:"end" json:"end"`
	Value      float64 `mapstructure:"val" json:"val"`
}

// Frame is a cross-entity snapshot of one concept for one calendar period.
type Frame struct {
	Taxonomy    string            `mapstructure:"taxonomy" json:"taxonomy"`
	Tag         string            `mapstructure:"tag" json:"tag"`
	CCP         string            `mapstructure:"ccp" json:"ccp"`
	UOM         string            `mapstructure:"uom" json:"uom"`
	Label       string            `mapstructure:"label" json:"label"`
	Description string            `mapstructure:"description" json:"description"`
	Points      int               `mapstructure:"pts" json:"pts"`
	Disclosures []FrameDisclosure `mapstructure:"data" json:"disclosures"`
}

// Company is one row of the ticker index.
type Company struct {
	CIK    string `mapstructure:"cik_str" json:"cik"`
	Ticker string `mapstructure:"ticker" json:"ticker"`
	Title  string `mapstructure:"title" json:"title"`
}
