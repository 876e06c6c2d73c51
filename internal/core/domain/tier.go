package domain

type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

func (t Tier) IsPro() bool {
	return t == TierPro
}
