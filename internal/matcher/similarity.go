package matcher

// Similarity computes a Ratcliff/Obershelp ratio between two strings:
// twice the number of matching characters over the total length, where
// matches are found by recursively splitting around the longest common
// substring. Returns a value in [0, 1].
func Similarity(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	matches := matchingChars([]rune(a), []rune(b))
	return 2 * float64(matches) / float64(len([]rune(a))+len([]rune(b)))
}

func matchingChars(a, b []rune) int {
	start1, start2, length := longestCommonSubstring(a, b)
	if length == 0 {
		return 0
	}
	total := length
	total += matchingChars(a[:start1], b[:start2])
	total += matchingChars(a[start1+length:], b[start2+length:])
	return total
}

func longestCommonSubstring(a, b []rune) (int, int, int) {
	bestLen, bestA, bestB := 0, 0, 0
	prev := make([]int, len(b)+1)
	current := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				current[j] = prev[j-1] + 1
				if current[j] > bestLen {
					bestLen = current[j]
					bestA = i - bestLen
					bestB = j - bestLen
				}
			} else {
				current[j] = 0
			}
		}
		prev, current = current, prev
	}

	return bestA, bestB, bestLen
}
