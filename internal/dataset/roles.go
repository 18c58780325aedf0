package dataset

// Roles partitions a dataset's columns by inferred role. Every column
// appears in exactly one of the three groups.
type Roles struct {
	DateCols        []string
	NumericCols     []string
	CategoricalCols []string
}

// DetectRoles classifies each column from its current cell types: a
// column whose non-missing values are all dates is a date column, all
// numbers a numeric column, and anything else categorical. Roles are
// recomputed from scratch on every call; they are never cached across
// dataset mutations.
func DetectRoles(d *Dataset) Roles {
	var roles Roles
	for _, c := range d.Columns {
		var nums, times, texts int
		for _, v := range c.Cells {
			switch v.Kind {
			case Number:
				nums++
			case Time:
				times++
			case Text:
				texts++
			}
		}
		switch {
		case times > 0 && nums == 0 && texts == 0:
			roles.DateCols = append(roles.DateCols, c.Name)
		case nums > 0 && times == 0 && texts == 0:
			roles.NumericCols = append(roles.NumericCols, c.Name)
		default:
			roles.CategoricalCols = append(roles.CategoricalCols, c.Name)
		}
	}
	return roles
}
