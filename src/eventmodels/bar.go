package eventmodels

// Bar is one side of a quote bar, or the price range of a trade bar.
type Bar struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Update widens the range with other and takes its close.
func (b *Bar) Update(other *Bar) {
	if other.High > b.High {
		b.High = other.High
	}

	if other.Low < b.Low {
		b.Low = other.Low
	}

	b.Close = other.Close
}

func (b *Bar) Clone() *Bar {
	if b == nil {
		return nil
	}

	c := *b
	return &c
}

func NewBar(price float64) *Bar {
	return &Bar{
		Open:  price,
		High:  price,
		Low:   price,
		Close: price,
	}
}
