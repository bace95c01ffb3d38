package vocab

import "github.com/rigforge/compat-cli/internal/model"

// Default returns the built-in vocabulary. A YAML overlay file can extend
// or replace individual tables at load time.
func Default() *Vocabulary {
	v := &Vocabulary{
		Sockets: []string{
			"AM3+", "AM4", "AM5", "TR4", "STRX4", "STR5", "SWRX8", "SP5",
			"LGA1151", "LGA1200", "LGA1700", "LGA1851", "LGA2066", "LGA4677",
			"FM2+",
		},
		ChipsetMap: map[string]string{
			// AMD AM4
			"A320": "AM4", "B350": "AM4", "X370": "AM4",
			"B450": "AM4", "X470": "AM4",
			"A520": "AM4", "B550": "AM4", "X570": "AM4",
			// AMD AM5
			"A620": "AM5", "B650": "AM5", "B650E": "AM5",
			"X670": "AM5", "X670E": "AM5", "B840": "AM5",
			"B850": "AM5", "X870": "AM5", "X870E": "AM5",
			// Intel LGA1200
			"H410": "LGA1200", "B460": "LGA1200", "H470": "LGA1200",
			"Z490": "LGA1200", "H510": "LGA1200", "B560": "LGA1200",
			"H570": "LGA1200", "Z590": "LGA1200",
			// Intel LGA1700
			"H610": "LGA1700", "B660": "LGA1700", "H670": "LGA1700",
			"Z690": "LGA1700", "B760": "LGA1700", "H770": "LGA1700",
			"Z790": "LGA1700",
			// Intel LGA1851
			"H810": "LGA1851", "B860": "LGA1851", "Z890": "LGA1851",
			// HEDT
			"X399": "TR4", "TRX40": "STRX4", "TRX50": "STR5",
			"WRX80": "SWRX8", "WRX90": "STR5",
		},
		MemoryTypes: []string{"DDR3", "DDR4", "DDR5"},
		FormFactors: map[string]string{
			"ATX":       "ATX",
			"E-ATX":     "E-ATX",
			"EATX":      "E-ATX",
			"MICRO-ATX": "MICRO-ATX",
			"MICRO ATX": "MICRO-ATX",
			"MICROATX":  "MICRO-ATX",
			"MATX":      "MICRO-ATX",
			"M-ATX":     "MICRO-ATX",
			"UATX":      "MICRO-ATX",
			"MINI-ITX":  "MINI-ITX",
			"MINI ITX":  "MINI-ITX",
			"MINIITX":   "MINI-ITX",
			"ITX":       "MINI-ITX",
		},
		Models: defaultModels(),
	}
	v.build()
	return v
}

// defaultModels seeds the canonical model list. Deployments extend this
// via the YAML overlay or `vocab import` from spreadsheet exports.
func defaultModels() []ModelSpec {
	cpu := func(name, brand, socket, gen string, tdp int) ModelSpec {
		return ModelSpec{
			Kind: model.KindCPU, Name: name, Brand: brand,
			Socket: socket, Generation: gen, TDPWatts: tdp,
		}
	}
	mobo := func(name, socket, chipset, ff, memType string) ModelSpec {
		return ModelSpec{
			Kind: model.KindMotherboard, Name: name, Socket: socket,
			Chipset: chipset, FormFactor: ff, MemoryType: memType,
		}
	}

	return []ModelSpec{
		// AMD AM4
		cpu("AMD Ryzen 5 3600", "AMD", "AM4", "Matisse", 65),
		cpu("AMD Ryzen 5 5600", "AMD", "AM4", "Vermeer", 65),
		cpu("AMD Ryzen 5 5600X", "AMD", "AM4", "Vermeer", 65),
		cpu("AMD Ryzen 7 5700X", "AMD", "AM4", "Vermeer", 65),
		cpu("AMD Ryzen 7 5800X", "AMD", "AM4", "Vermeer", 105),
		cpu("AMD Ryzen 7 5800X3D", "AMD", "AM4", "Vermeer", 105),
		cpu("AMD Ryzen 9 5900X", "AMD", "AM4", "Vermeer", 105),
		cpu("AMD Ryzen 9 5950X", "AMD", "AM4", "Vermeer", 105),
		// AMD AM5
		cpu("AMD Ryzen 5 7600", "AMD", "AM5", "Raphael", 65),
		cpu("AMD Ryzen 5 7600X", "AMD", "AM5", "Raphael", 105),
		cpu("AMD Ryzen 7 7700X", "AMD", "AM5", "Raphael", 105),
		cpu("AMD Ryzen 7 7800X3D", "AMD", "AM5", "Raphael", 120),
		cpu("AMD Ryzen 9 7900X", "AMD", "AM5", "Raphael", 170),
		cpu("AMD Ryzen 9 7950X", "AMD", "AM5", "Raphael", 170),
		cpu("AMD Ryzen 5 9600X", "AMD", "AM5", "Granite Ridge", 65),
		cpu("AMD Ryzen 7 9700X", "AMD", "AM5", "Granite Ridge", 65),
		cpu("AMD Ryzen 7 9800X3D", "AMD", "AM5", "Granite Ridge", 120),
		cpu("AMD Ryzen 9 9950X", "AMD", "AM5", "Granite Ridge", 170),
		// Intel LGA1700
		cpu("Intel Core i5-12400F", "INTEL", "LGA1700", "Alder Lake", 65),
		cpu("Intel Core i5-12600K", "INTEL", "LGA1700", "Alder Lake", 125),
		cpu("Intel Core i7-12700K", "INTEL", "LGA1700", "Alder Lake", 125),
		cpu("Intel Core i9-12900K", "INTEL", "LGA1700", "Alder Lake", 125),
		cpu("Intel Core i5-13600K", "INTEL", "LGA1700", "Raptor Lake", 125),
		cpu("Intel Core i7-13700K", "INTEL", "LGA1700", "Raptor Lake", 125),
		cpu("Intel Core i9-13900K", "INTEL", "LGA1700", "Raptor Lake", 125),
		cpu("Intel Core i5-14600K", "INTEL", "LGA1700", "Raptor Lake Refresh", 125),
		cpu("Intel Core i9-14900K", "INTEL", "LGA1700", "Raptor Lake Refresh", 125),
		// Intel LGA1851
		cpu("Intel Core Ultra 5 245K", "INTEL", "LGA1851", "Arrow Lake", 125),
		cpu("Intel Core Ultra 7 265K", "INTEL", "LGA1851", "Arrow Lake", 125),
		cpu("Intel Core Ultra 9 285K", "INTEL", "LGA1851", "Arrow Lake", 125),
		// Motherboards
		mobo("ASUS ROG STRIX B550-F GAMING", "AM4", "B550", "ATX", "DDR4"),
		mobo("MSI MAG B550 TOMAHAWK", "AM4", "B550", "ATX", "DDR4"),
		mobo("GIGABYTE B650 AORUS ELITE AX", "AM5", "B650", "ATX", "DDR5"),
		mobo("ASUS TUF GAMING X670E-PLUS", "AM5", "X670E", "ATX", "DDR5"),
		mobo("MSI MPG Z690 EDGE WIFI", "LGA1700", "Z690", "ATX", "DDR5"),
		mobo("ASUS PRIME Z790-P", "LGA1700", "Z790", "ATX", "DDR5"),
		mobo("GIGABYTE Z790 AORUS ELITE AX", "LGA1700", "Z790", "ATX", "DDR5"),
		mobo("ASROCK B760M PRO RS", "LGA1700", "B760", "MICRO-ATX", "DDR5"),
	}
}
