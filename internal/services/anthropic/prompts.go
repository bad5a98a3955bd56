package anthropic

import (
	"fmt"
	"strings"
)

// Categories is the closed vocabulary the classification prompt offers.
var Categories = []string{
	"Code", "Finance", "Social", "Shopping", "Email", "Chat",
	"Browser", "Design", "Documents", "Settings", "Media", "Other",
}

var classifyPrompt = "Analyze this screenshot. Output JSON only.\n\n" +
	"Rules:\n" +
	"- 'new_filename': snake_case, 3-4 words max, descriptive, .png\n" +
	"- 'category': ONE simple word from: " + strings.Join(Categories, ", ") + "\n" +
	"- 'reasoning': 2-3 words why\n\n" +
	`Example: {"new_filename": "stripe_invoice.png", "category": "Finance", "reasoning": "payment receipt"}`

// ClassifyPrompt returns the primary classification instruction.
func ClassifyPrompt() string {
	return classifyPrompt
}

// SubcategoryPrompt returns the refinement instruction for parentCategory.
func SubcategoryPrompt(parentCategory string) string {
	return fmt.Sprintf(
		"This screenshot is currently categorized as '%s'. Look at the image and give a MORE SPECIFIC subcategory. "+
			"Output ONLY a JSON object with 'subcategory' (2-3 words max, be specific based on what you see). "+
			"Examples for Finance: 'Receipts', 'Bank_Statements', 'Invoices', 'Tax_Documents', 'Subscriptions'. "+
			"Examples for Code: 'Terminal', 'Code_Editor', 'Documentation', 'GitHub', 'Errors'. "+
			`Example output: {"subcategory": "Bank_Statements"}`,
		strings.TrimSpace(parentCategory),
	)
}
