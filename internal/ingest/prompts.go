package ingest

// extractionPrompt is the fixed instruction sent with every receipt image.
// The model is told to emit a strict JSON object; the parser still treats
// the response as untrusted text.
const extractionPrompt = `Extract the following information from the receipt image and return ONLY a JSON object with these fields
{
   "total_amount": "amount in the format X.XX",
   "vendor_name": "full business name",
   "receipt_date": "date in YYYY-MM-DD format"
}

Requirements:
- Convert all dates to YYYY-MM-DD format regardless of input format
- Exclude currency symbols such as ₹ from the total amount always
- Extract the final paid amount including tax
- Include the full business name without abbreviations where possible
- In case any of the other data is unavailable, return None as its value
- Do NOT wrap the response in code fences or Markdown`
