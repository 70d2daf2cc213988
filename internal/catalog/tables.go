package catalog

// defaultRules are checked in priority order: produce, dairy, meat, bakery,
// frozen, beverages, personal care, household, pantry.
func defaultRules() []Rule {
	return []Rule{
		{Category: "produce", Days: 5, Keywords: []string{"berr", "lettuce", "spinach", "salad", "mushroom", "cilantro", "herb"}},
		{Category: "produce", Days: 7, Keywords: []string{
			"banana", "tomatoes", "avocado", "cucumber", "bell pepper", "broccoli", "grape",
			"peach", "pear", "melon", "honeydew", "kale", "celery", "zucchini", "eggplant", "fruit",
		}},
		{Category: "produce", Days: 21, Keywords: []string{"apple", "orange", "lemon", "lime", "carrot"}},
		{Category: "produce", Days: 30, Keywords: []string{"potato", "onion", "garlic", "squash"}},

		{Category: "dairy", Days: 7, Keywords: []string{
			"milk", "yogurt", "yoghurt", "cottage", "heavy cream", "sour cream", "whipping cream",
		}},
		{Category: "dairy", Days: 21, Keywords: []string{"cheese", "butter", "egg"}},

		{Category: "meat", Days: 3, Keywords: []string{
			"chicken", "beef", "pork", "turkey", "steak", "sausage", "fish", "salmon", "shrimp", "lamb",
		}},
		{Category: "meat", Days: 7, Keywords: []string{"bacon"}},

		{Category: "bakery", Days: 5, Keywords: []string{
			"bread", "bagel", "bun", "muffin", "croissant", "cake", "donut", "pastry", "baguette",
		}},
		{Category: "bakery", Days: 14, Keywords: []string{"tortilla"}},

		{Category: "frozen", Days: 90, Keywords: []string{"frozen", "ice cream", "pizza", "popsicle"}},

		{Category: "beverages", Days: 10, Keywords: []string{"juice", "kombucha"}},
		{Category: "beverages", Days: 180, Keywords: []string{"water", "soda", "coffee", "tea", "beer", "wine", "sparkling"}},

		{Category: "personal-care", Days: 365, Keywords: []string{
			"shampoo", "conditioner", "soap", "toothpaste", "toothbrush", "deodorant", "lotion", "razor", "floss",
		}},

		{Category: "household", Days: 730, Keywords: []string{
			"paper towel", "toilet paper", "detergent", "bleach", "trash bag", "dish", "sponge", "foil", "cleaner", "tissue",
		}},

		{Category: "pantry", Days: 365, Keywords: []string{
			"soup", "canned", "beans", "rice", "pasta", "flour", "sugar", "salt", "spice", "vinegar", "honey",
		}},
		{Category: "pantry", Days: 180, Keywords: []string{"cereal", "oats", "crackers", "chips", "peanut", "sauce", "oil"}},
	}
}

// defaultFoods covers nouns people say when dictating a grocery list. Rules
// follow the same priority as defaultRules; the compound "tomato soup" leads so
// it is never read as a tomato.
func defaultFoods() []Rule {
	return []Rule{
		{Category: "pantry", Days: 365, Keywords: []string{"tomato soup"}},

		{Category: "produce", Days: 7, Keywords: []string{
			"blueberry", "blueberries", "strawberry", "strawberries", "raspberry", "raspberries",
			"berries", "banana", "lettuce", "spinach", "tomatoes", "avocado", "grape",
		}},
		{Category: "produce", Days: 30, Keywords: []string{"apple", "potato", "onion", "carrot"}},

		{Category: "dairy", Days: 7, Keywords: []string{"milk", "yogurt"}},
		{Category: "dairy", Days: 21, Keywords: []string{"egg", "cheese", "butter"}},

		{Category: "meat", Days: 3, Keywords: []string{"chicken", "beef", "pork", "turkey", "fish", "salmon", "bacon"}},

		{Category: "bakery", Days: 5, Keywords: []string{"bread", "bagel", "muffin", "tortilla"}},

		{Category: "frozen", Days: 90, Keywords: []string{"ice cream", "frozen", "pizza"}},

		{Category: "beverages", Days: 10, Keywords: []string{"juice"}},
		{Category: "beverages", Days: 180, Keywords: []string{"water", "soda", "coffee", "tea"}},

		{Category: "personal-care", Days: 365, Keywords: []string{"shampoo", "soap", "toothpaste"}},

		{Category: "household", Days: 730, Keywords: []string{"paper towel", "toilet paper", "detergent"}},

		{Category: "pantry", Days: 365, Keywords: []string{
			"soup", "canned", "bean", "rice", "pasta", "spaghetti", "flour", "sugar", "salt", "honey",
		}},
	}
}
