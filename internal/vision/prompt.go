package vision

// receiptPrompt is the shared prompt used by all vision providers for
// turning a receipt photo into the structured bill contract.
const receiptPrompt = `You are analyzing a restaurant receipt. Carefully read all text in the image and extract the following information:

1. **Restaurant Name**: The name of the establishment, usually the largest text or in a header at the top of the receipt.

2. **Items**: A list of all individual items with their prices. If an item appears with a quantity greater than one (e.g., "2 x Item Name"), expand it into separate entries in the list (e.g., two "Item Name" entries, each at the single-item price).

3. **Subtotal**: The total cost of items before tax and tip. If there are separate subtotals (e.g., for food and drinks), sum them into a single value.

4. **Tax**: The tax amount.

5. **Tip**: The tip amount. Look for both printed and handwritten tips. If no tip is found, this value must be 0.0.

6. **Total**: The final amount paid.

Return ONLY valid JSON in this exact format:
{
  "restaurant_name": "The Example Cafe",
  "items": [{"name": "Espresso", "price": 3.50}, {"name": "Latte", "price": 4.50}],
  "subtotal": 8.00,
  "tax": 0.71,
  "tip": 1.50,
  "total": 10.21
}

Important:
- Every price must be a number (not a string), representing dollars and cents
- Do not include any text before or after the JSON
- Do not use markdown code blocks`
