package questions

// Country is one entry of the static flag dataset.
type Country struct {
	Name   string `json:"name"`
	Flag   string `json:"flag"`
	Code   string `json:"code"`
	Region string `json:"region"`

	// tier is the lowest difficulty at which the country enters the pool:
	// 1=easy, 2=medium, 3=hard, 4=expert.
	tier int
}

// FlagEmoji derives the flag emoji from a two-letter ISO code using the
// Unicode regional indicator symbols.
func FlagEmoji(code string) string {
	if len(code) != 2 {
		return ""
	}
	r := []rune{
		rune(0x1F1E6 + rune(code[0]) - 'A'),
		rune(0x1F1E6 + rune(code[1]) - 'A'),
	}
	return string(r)
}

func country(name, code, region string, tier int) Country {
	return Country{Name: name, Flag: FlagEmoji(code), Code: code, Region: region, tier: tier}
}

// countries is the full dataset, ordered roughly by recognizability tier.
var countries = []Country{
	// Tier 1: widely recognizable flags.
	country("United States", "US", "Americas", 1),
	country("United Kingdom", "GB", "Europe", 1),
	country("France", "FR", "Europe", 1),
	country("Germany", "DE", "Europe", 1),
	country("Italy", "IT", "Europe", 1),
	country("Spain", "ES", "Europe", 1),
	country("Japan", "JP", "Asia", 1),
	country("China", "CN", "Asia", 1),
	country("Brazil", "BR", "Americas", 1),
	country("Canada", "CA", "Americas", 1),
	country("Australia", "AU", "Oceania", 1),
	country("Russia", "RU", "Europe", 1),
	country("India", "IN", "Asia", 1),
	country("Mexico", "MX", "Americas", 1),
	country("South Korea", "KR", "Asia", 1),
	country("Netherlands", "NL", "Europe", 1),
	country("Sweden", "SE", "Europe", 1),
	country("Switzerland", "CH", "Europe", 1),
	country("Turkey", "TR", "Europe", 1),
	country("Greece", "GR", "Europe", 1),
	country("Portugal", "PT", "Europe", 1),
	country("Norway", "NO", "Europe", 1),
	country("Denmark", "DK", "Europe", 1),
	country("Ireland", "IE", "Europe", 1),
	country("New Zealand", "NZ", "Oceania", 1),
	country("Argentina", "AR", "Americas", 1),
	country("Egypt", "EG", "Africa", 1),
	country("South Africa", "ZA", "Africa", 1),
	country("Poland", "PL", "Europe", 1),
	country("Belgium", "BE", "Europe", 1),

	// Tier 2.
	country("Finland", "FI", "Europe", 2),
	country("Austria", "AT", "Europe", 2),
	country("Czechia", "CZ", "Europe", 2),
	country("Hungary", "HU", "Europe", 2),
	country("Romania", "RO", "Europe", 2),
	country("Ukraine", "UA", "Europe", 2),
	country("Thailand", "TH", "Asia", 2),
	country("Vietnam", "VN", "Asia", 2),
	country("Indonesia", "ID", "Asia", 2),
	country("Malaysia", "MY", "Asia", 2),
	country("Philippines", "PH", "Asia", 2),
	country("Singapore", "SG", "Asia", 2),
	country("Saudi Arabia", "SA", "Asia", 2),
	country("United Arab Emirates", "AE", "Asia", 2),
	country("Israel", "IL", "Asia", 2),
	country("Chile", "CL", "Americas", 2),
	country("Colombia", "CO", "Americas", 2),
	country("Peru", "PE", "Americas", 2),
	country("Venezuela", "VE", "Americas", 2),
	country("Cuba", "CU", "Americas", 2),
	country("Morocco", "MA", "Africa", 2),
	country("Nigeria", "NG", "Africa", 2),
	country("Kenya", "KE", "Africa", 2),
	country("Iceland", "IS", "Europe", 2),
	country("Croatia", "HR", "Europe", 2),
	country("Serbia", "RS", "Europe", 2),
	country("Bulgaria", "BG", "Europe", 2),
	country("Slovakia", "SK", "Europe", 2),

	// Tier 3.
	country("Estonia", "EE", "Europe", 3),
	country("Latvia", "LV", "Europe", 3),
	country("Lithuania", "LT", "Europe", 3),
	country("Slovenia", "SI", "Europe", 3),
	country("Bosnia and Herzegovina", "BA", "Europe", 3),
	country("North Macedonia", "MK", "Europe", 3),
	country("Albania", "AL", "Europe", 3),
	country("Georgia", "GE", "Asia", 3),
	country("Armenia", "AM", "Asia", 3),
	country("Azerbaijan", "AZ", "Asia", 3),
	country("Kazakhstan", "KZ", "Asia", 3),
	country("Uzbekistan", "UZ", "Asia", 3),
	country("Mongolia", "MN", "Asia", 3),
	country("Nepal", "NP", "Asia", 3),
	country("Sri Lanka", "LK", "Asia", 3),
	country("Bangladesh", "BD", "Asia", 3),
	country("Myanmar", "MM", "Asia", 3),
	country("Cambodia", "KH", "Asia", 3),
	country("Laos", "LA", "Asia", 3),
	country("Jordan", "JO", "Asia", 3),
	country("Lebanon", "LB", "Asia", 3),
	country("Qatar", "QA", "Asia", 3),
	country("Kuwait", "KW", "Asia", 3),
	country("Oman", "OM", "Asia", 3),
	country("Bahrain", "BH", "Asia", 3),
	country("Tunisia", "TN", "Africa", 3),
	country("Algeria", "DZ", "Africa", 3),
	country("Ghana", "GH", "Africa", 3),
	country("Senegal", "SN", "Africa", 3),
	country("Ethiopia", "ET", "Africa", 3),
	country("Tanzania", "TZ", "Africa", 3),
	country("Uganda", "UG", "Africa", 3),
	country("Ecuador", "EC", "Americas", 3),
	country("Bolivia", "BO", "Americas", 3),
	country("Paraguay", "PY", "Americas", 3),
	country("Uruguay", "UY", "Americas", 3),
	country("Panama", "PA", "Americas", 3),
	country("Costa Rica", "CR", "Americas", 3),

	// Tier 4: the confusable long tail.
	country("Moldova", "MD", "Europe", 4),
	country("Montenegro", "ME", "Europe", 4),
	country("Liechtenstein", "LI", "Europe", 4),
	country("Monaco", "MC", "Europe", 4),
	country("San Marino", "SM", "Europe", 4),
	country("Andorra", "AD", "Europe", 4),
	country("Malta", "MT", "Europe", 4),
	country("Luxembourg", "LU", "Europe", 4),
	country("Cyprus", "CY", "Europe", 4),
	country("Bhutan", "BT", "Asia", 4),
	country("Maldives", "MV", "Asia", 4),
	country("Brunei", "BN", "Asia", 4),
	country("Timor-Leste", "TL", "Asia", 4),
	country("Tajikistan", "TJ", "Asia", 4),
	country("Kyrgyzstan", "KG", "Asia", 4),
	country("Turkmenistan", "TM", "Asia", 4),
	country("Afghanistan", "AF", "Asia", 4),
	country("Pakistan", "PK", "Asia", 4),
	country("Iraq", "IQ", "Asia", 4),
	country("Iran", "IR", "Asia", 4),
	country("Yemen", "YE", "Asia", 4),
	country("Papua New Guinea", "PG", "Oceania", 4),
	country("Fiji", "FJ", "Oceania", 4),
	country("Solomon Islands", "SB", "Oceania", 4),
	country("Vanuatu", "VU", "Oceania", 4),
	country("Samoa", "WS", "Oceania", 4),
	country("Tonga", "TO", "Oceania", 4),
	country("Kiribati", "KI", "Oceania", 4),
	country("Palau", "PW", "Oceania", 4),
	country("Micronesia", "FM", "Oceania", 4),
	country("Marshall Islands", "MH", "Oceania", 4),
	country("Cape Verde", "CV", "Africa", 4),
	country("Comoros", "KM", "Africa", 4),
	country("Seychelles", "SC", "Africa", 4),
	country("Mauritius", "MU", "Africa", 4),
	country("Gambia", "GM", "Africa", 4),
	country("Guinea-Bissau", "GW", "Africa", 4),
	country("Sierra Leone", "SL", "Africa", 4),
	country("Liberia", "LR", "Africa", 4),
	country("Togo", "TG", "Africa", 4),
	country("Benin", "BJ", "Africa", 4),
	country("Burkina Faso", "BF", "Africa", 4),
	country("Niger", "NE", "Africa", 4),
	country("Mali", "ML", "Africa", 4),
	country("Chad", "TD", "Africa", 4),
	country("Cameroon", "CM", "Africa", 4),
	country("Gabon", "GA", "Africa", 4),
	country("Burundi", "BI", "Africa", 4),
	country("Rwanda", "RW", "Africa", 4),
	country("Malawi", "MW", "Africa", 4),
	country("Zambia", "ZM", "Africa", 4),
	country("Zimbabwe", "ZW", "Africa", 4),
	country("Mozambique", "MZ", "Africa", 4),
	country("Angola", "AO", "Africa", 4),
	country("Namibia", "NA", "Africa", 4),
	country("Botswana", "BW", "Africa", 4),
	country("Lesotho", "LS", "Africa", 4),
	country("Eswatini", "SZ", "Africa", 4),
	country("Djibouti", "DJ", "Africa", 4),
	country("Eritrea", "ER", "Africa", 4),
	country("Haiti", "HT", "Americas", 4),
	country("Dominican Republic", "DO", "Americas", 4),
	country("Jamaica", "JM", "Americas", 4),
	country("Trinidad and Tobago", "TT", "Americas", 4),
	country("Barbados", "BB", "Americas", 4),
	country("Bahamas", "BS", "Americas", 4),
	country("Belize", "BZ", "Americas", 4),
	country("Guatemala", "GT", "Americas", 4),
	country("Honduras", "HN", "Americas", 4),
	country("El Salvador", "SV", "Americas", 4),
	country("Nicaragua", "NI", "Americas", 4),
	country("Guyana", "GY", "Americas", 4),
	country("Suriname", "SR", "Americas", 4),
}

// ByCode returns the country with the given ISO code.
func ByCode(code string) (Country, bool) {
	for _, c := range countries {
		if c.Code == code {
			return c, true
		}
	}
	return Country{}, false
}

// All returns a copy of the full dataset.
func All() []Country {
	out := make([]Country, len(countries))
	copy(out, countries)
	return out
}
