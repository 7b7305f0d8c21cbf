package pubdb

import "strings"

// Document class discriminators observed in publication databases. The
// mapping is a fixed lookup, not inferred from content.
const (
	// ClassMeetingWorkbook marks weekly meeting guide articles.
	ClassMeetingWorkbook = 106
	// ClassStudyArticle marks magazine study articles.
	ClassStudyArticle = 40
)

// ClassForSymbol maps a publication symbol to the document class its primary
// articles carry. Guide publications (mwb family) use the workbook class;
// everything else is treated as a study magazine.
func ClassForSymbol(symbol string) int {
	if strings.Contains(strings.ToLower(symbol), "mwb") {
		return ClassMeetingWorkbook
	}
	return ClassStudyArticle
}
