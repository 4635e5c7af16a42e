package rigd

import "sort"

// EnumerateInput bundles everything candidate enumeration consults.
type EnumerateInput struct {
	Item          string
	Inventory     map[string]int
	NearbyBlocks  []string
	NearbyEntities []NearbyEntity
	Tables        StaticTables
	Catalog       CraftingCatalog // nil is valid: mine/craft gate out entirely
}

// enumeratedCandidate pairs a Candidate with the context token (if any)
// its dispatch would need to inject.
type enumeratedCandidate struct {
	Candidate
	ContextToken string
}

// EnumerateCandidates builds the candidate list across all five
// strategies, gating mine/craft on catalog availability (fail-closed),
// trade on a nearby entity of the offer's type, and salvage on the source
// item being in inventory. Loot candidates come from the loot table with
// no observation check.
func EnumerateCandidates(in EnumerateInput) []enumeratedCandidate {
	var out []enumeratedCandidate

	if in.Catalog != nil {
		if tier, ok := in.Catalog.ToolTier(in.Item); ok && blocksContain(in.NearbyBlocks, in.Item) {
			out = append(out, enumeratedCandidate{
				Candidate: Candidate{
					Item:     in.Item,
					Strategy: StrategyMine,
					BaseCost: mineBaseCost(tier),
					Tags:     []string{string(StrategyMine)},
				},
			})
		}
		if in.Catalog.HasRecipe(in.Item) {
			out = append(out, enumeratedCandidate{
				Candidate: Candidate{
					Item:     in.Item,
					Strategy: StrategyCraft,
					BaseCost: craftBaseCost,
					Tags:     []string{string(StrategyCraft)},
				},
			})
		}
	}

	for _, offer := range in.Tables.tradesFor(in.Item) {
		entity, ok := findEntity(in.NearbyEntities, offer.EntityType)
		if !ok {
			continue
		}
		out = append(out, enumeratedCandidate{
			Candidate: Candidate{
				Item:     in.Item,
				Strategy: StrategyTrade,
				BaseCost: offer.BaseCost,
				Tags:     []string{string(StrategyTrade)},
			},
			ContextToken: proximityToken(entity.Type),
		})
	}

	for _, loot := range in.Tables.lootFor(in.Item) {
		out = append(out, enumeratedCandidate{
			Candidate: Candidate{
				Item:     in.Item,
				Strategy: StrategyLoot,
				BaseCost: loot.BaseCost,
				Tags:     []string{string(StrategyLoot)},
			},
		})
	}

	for _, salvage := range in.Tables.salvagesFor(in.Item) {
		if in.Inventory[salvage.FromItem] <= 0 {
			continue
		}
		out = append(out, enumeratedCandidate{
			Candidate: Candidate{
				Item:     in.Item,
				Strategy: StrategySalvage,
				BaseCost: salvage.BaseCost,
				Tags:     []string{string(StrategySalvage)},
			},
		})
	}

	return out
}

const craftBaseCost = 1.0

func mineBaseCost(tier string) float64 {
	switch tier {
	case "hand":
		return 1.0
	case "wood":
		return 2.0
	case "stone":
		return 3.0
	case "iron":
		return 4.0
	case "diamond":
		return 5.0
	default:
		return 3.0
	}
}

func blocksContain(blocks []string, item string) bool {
	for _, b := range blocks {
		if b == item {
			return true
		}
	}
	return false
}

func findEntity(entities []NearbyEntity, entityType string) (NearbyEntity, bool) {
	for _, e := range entities {
		if e.Type == entityType {
			return e, true
		}
	}
	return NearbyEntity{}, false
}

func proximityToken(entityType string) string {
	return "proximity:" + entityType
}

// sortedStrategyTags returns the sorted strategy-tag multiset used by
// computeCandidateSetDigest: one tag per candidate, duplicates kept.
func sortedStrategyTags(candidates []enumeratedCandidate) []string {
	tags := make([]string, 0, len(candidates))
	for _, c := range candidates {
		tags = append(tags, string(c.Strategy)+":"+c.Item)
	}
	sort.Strings(tags)
	return tags
}
