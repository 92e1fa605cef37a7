package engagement

import (
	"bytes"
	"sort"
)

// DenseRank ordena por pontos decrescentes e atribui posições densas:
// empates dividem a posição e o próximo valor distinto segue em +1.
// Dentro do empate a ordem é pelo ID do usuário, crescente.
func DenseRank(entries []RankingEntry) []RankingEntry {
	out := make([]RankingEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return bytes.Compare(out[i].UserID[:], out[j].UserID[:]) < 0
	})

	pos := 0
	for i := range out {
		if i == 0 || out[i].Points != out[i-1].Points {
			pos++
		}
		out[i].Position = pos
	}
	return out
}
