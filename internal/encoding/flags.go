package encoding

const (
	surplusBase  uint8 = 0x1
	surplusQuote uint8 = 0x2
)

// SurplusToggle encodes a single flag that applies to both sides of the pair.
func SurplusToggle(useSurplus bool) uint8 {
	if useSurplus {
		return surplusBase | surplusQuote
	}
	return 0
}

// SurplusPair encodes per-side flags given in (left, right) order. inverted
// means left is the pool's quote token.
func SurplusPair(left, right, inverted bool) uint8 {
	baseFlag, quoteFlag := left, right
	if inverted {
		baseFlag, quoteFlag = right, left
	}
	var out uint8
	if baseFlag {
		out |= surplusBase
	}
	if quoteFlag {
		out |= surplusQuote
	}
	return out
}

// DecodeSurplus returns the (base, quote) flags.
func DecodeSurplus(flags uint8) (bool, bool) {
	return flags&surplusBase > 0, flags&surplusQuote > 0
}
