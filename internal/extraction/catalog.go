package extraction

// CatalogPage lists the fields the extractor is trained to find on one page.
type CatalogPage struct {
	Index  int
	Key    string
	Fields []string
}

// Catalog describes a form layout: which fields live on which page.
type Catalog struct {
	Name        string
	Description string
	Pages       []CatalogPage
}

// KYCCatalog is the two-page KYC account-opening form.
func KYCCatalog() Catalog {
	return Catalog{
		Name:        "custom-kyc-extractor",
		Description: "Custom KYC Form Extractor",
		Pages: []CatalogPage{
			{
				Index: 0,
				Key:   "page_one",
				Fields: []string{
					"Date", "CIF", "FirstName", "MiddleName", "LastName", "DateOfBirth",
					"CityOfBirth", "MaritalStatus", "Gender", "PassportNumber", "EmiratesIDNumber",
					"Residency", "NumberOfYears", "CountryOfResidence", "StreetName", "Area",
					"MakaniNumber", "BuildingNumber", "FlatVillaNumber", "CityEmirate", "POBox",
					"Country", "MobileNumber", "AlternativeNumber", "EmailAddress",
				},
			},
			{
				Index: 1,
				Key:   "page_two",
				Fields: []string{
					"Employer", "Department", "Designation", "GrossMonthlyIncome",
					"NatureOfBusiness", "PercentageOfOwnership",
				},
			},
		},
	}
}

// PageOf returns the catalog page that owns field.
func (c Catalog) PageOf(field string) (CatalogPage, bool) {
	for _, p := range c.Pages {
		for _, f := range p.Fields {
			if f == field {
				return p, true
			}
		}
	}
	return CatalogPage{}, false
}

// SupportedFields maps each page key to its field names.
func (c Catalog) SupportedFields() map[string][]string {
	out := make(map[string][]string, len(c.Pages))
	for _, p := range c.Pages {
		out[p.Key] = append([]string(nil), p.Fields...)
	}
	return out
}
