package catalog

import "time"

// seed loads the demo catalog the mock console ships with.
func (s *Store) seed() {
	now := time.Now().UTC()

	products := []Product{
		{
			ID:          1,
			Name:        "iPhone 15 Pro",
			Description: "Apple iPhone 15 Pro akıllı telefon",
			Price:       45000,
			Category:    "Elektronik",
			Stock:       50,
			Colors: []ProductColor{
				{ID: 4, Name: "Uzay Siyahı", HexCode: "#1a1a1a", Price: 45000},
				{ID: 5, Name: "Doğal Titanyum", HexCode: "#8e8e93", Price: 46000},
				{ID: 6, Name: "Beyaz Titanyum", HexCode: "#f5f5f7", Price: 46000},
				{ID: 7, Name: "Mavi Titanyum", HexCode: "#5ac8fa", Price: 47000},
			},
			ImageURL:  "https://example.com/iphone15pro.jpg",
			IsActive:  true,
			CreatedAt: now,
		},
		{
			ID:          2,
			Name:        "Samsung Galaxy S24",
			Description: "Samsung Galaxy S24 akıllı telefon",
			Price:       35000,
			Category:    "Elektronik",
			Stock:       30,
			Colors: []ProductColor{
				{ID: 8, Name: "Phantom Black", HexCode: "#000000", Price: 35000},
				{ID: 9, Name: "Phantom Violet", HexCode: "#7c3aed", Price: 36000},
				{ID: 10, Name: "Phantom Silver", HexCode: "#c0c0c0", Price: 36000},
			},
			ImageURL:  "https://example.com/galaxy24.jpg",
			IsActive:  true,
			CreatedAt: now,
		},
		{
			ID:          3,
			Name:        "MacBook Pro 16\"",
			Description: "Apple MacBook Pro 16 inç dizüstü bilgisayar",
			Price:       85000,
			Category:    "Bilgisayar",
			Stock:       15,
			Colors: []ProductColor{
				{ID: 11, Name: "Uzay Grisi", HexCode: "#939396", Price: 85000},
				{ID: 12, Name: "Gümüş", HexCode: "#f5f5f7", Price: 86000},
			},
			ImageURL:  "https://example.com/macbook16.jpg",
			IsActive:  true,
			CreatedAt: now,
		},
	}

	s.mu.Lock()
	s.nextID = 13
	s.publishLocked(products)
	s.mu.Unlock()
}
