package testutil

import (
	"fmt"
	"strings"
)

// MinimalPDF builds a valid PDF with the given number of blank pages.
func MinimalPDF(pages int) []byte {
	var b strings.Builder

	b.WriteString("%PDF-1.4\n")

	objects := 2 + pages
	offsets := make([]int, objects+1)

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	kids := make([]string, 0, pages)
	for i := range pages {
		kids = append(kids, fmt.Sprintf("%d 0 R", i+3))
	}

	offsets[2] = b.Len()
	fmt.Fprintf(&b, "2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n", strings.Join(kids, " "), pages)

	for i := range pages {
		n := i + 3
		offsets[n] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>\nendobj\n", n)
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", objects+1)
	b.WriteString("0000000000 65535 f \n")

	for i := 1; i <= objects; i++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[i])
	}

	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", objects+1, xref)

	return []byte(b.String())
}
