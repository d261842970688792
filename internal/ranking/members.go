package ranking

// Vote is one member's score for one entry.
type Vote struct {
	Member  string
	EntryID string
	Value   float64
}

// MemberStats summarises a member's votes. AvgReceived is nil when the member
// authored no ranked entry.
type MemberStats struct {
	Member      string
	AvgGiven    float64
	AvgReceived *float64
}

// GivenAverages returns each member's rounded average given score.
func GivenAverages(votes []Vote, digits int) map[string]float64 {
	byMember := make(map[string][]float64)
	for _, v := range votes {
		byMember[v.Member] = append(byMember[v.Member], v.Value)
	}
	out := make(map[string]float64, len(byMember))
	for member, values := range byMember {
		avg, _ := Average(values, digits)
		out[member] = avg
	}
	return out
}

// MemberAverages computes given and received averages for members. authors
// maps entry ids to their author; stats provides the entry averages.
func MemberAverages(members []string, votes []Vote, authors map[string]string, stats []Stats, digits int) []MemberStats {
	given := GivenAverages(votes, digits)
	received := make(map[string][]float64)
	for _, s := range stats {
		if author := authors[s.EntryID]; author != "" {
			received[author] = append(received[author], s.AvgScore)
		}
	}
	out := make([]MemberStats, 0, len(members))
	for _, m := range members {
		ms := MemberStats{Member: m, AvgGiven: given[m]}
		if values, ok := received[m]; ok {
			avg, _ := Average(values, digits)
			ms.AvgReceived = &avg
		}
		out = append(out, ms)
	}
	return out
}
