package aggregate

import (
	"math"
	"sort"

	"github.com/chrisdamba/slawatch/internal/models"
)

// Cuisine groups the cuisine dataset by cuisine type, most orders first.
// Delivery time is the unweighted mean over rows.
func Cuisine(records []models.RawOrderRecord) []models.CuisinePerformance {
	index := make(map[string]int)
	var out []models.CuisinePerformance
	var rows []int

	for _, r := range records {
		if r.CuisineType == "" {
			continue
		}
		i, ok := index[r.CuisineType]
		if !ok {
			i = len(out)
			index[r.CuisineType] = i
			out = append(out, models.CuisinePerformance{Name: r.CuisineType})
			rows = append(rows, 0)
		}
		c := &out[i]
		c.AvgDeliveryMinutes = (c.AvgDeliveryMinutes*float64(rows[i]) + r.AvgDeliveryMinutes) / float64(rows[i]+1)
		c.Orders += r.OrderCount
		c.Revenue += r.Revenue
		rows[i]++
	}

	for i := range out {
		out[i].Revenue = math.Round(out[i].Revenue)
		out[i].AvgDeliveryMinutes = math.Round(out[i].AvgDeliveryMinutes*10) / 10
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Orders > out[j].Orders })
	return out
}

// MenuCategories groups the menu item dataset by category, most items sold first.
func MenuCategories(records []models.RawOrderRecord) []models.MenuCategorySales {
	index := make(map[string]int)
	var out []models.MenuCategorySales

	for _, r := range records {
		if r.Category == "" {
			continue
		}
		i, ok := index[r.Category]
		if !ok {
			i = len(out)
			index[r.Category] = i
			out = append(out, models.MenuCategorySales{Name: r.Category})
		}
		out[i].TotalItems += r.TotalItemsSold
		out[i].TotalSales += r.TotalSales
	}

	for i := range out {
		if out[i].TotalItems > 0 {
			out[i].AvgPricePerItem = math.Round(out[i].TotalSales/out[i].TotalItems*100) / 100
		}
		out[i].TotalSales = math.Round(out[i].TotalSales)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalItems > out[j].TotalItems })
	return out
}
