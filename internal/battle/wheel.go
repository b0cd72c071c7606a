package battle

// DrawItem maps a ticket onto a box's weighted wheel. Items occupy
// consecutive ticket ranges in list order, each as wide as its Tickets
// weight; weights are expected to sum to the 100000 ticket space. A ticket
// past the last range (short weight tables) lands on the final item.
func DrawItem(box Box, ticket uint32) BoxItem {
	var cum uint32
	for _, item := range box.Items {
		cum += item.Tickets
		if ticket < cum {
			return item
		}
	}
	return box.Items[len(box.Items)-1]
}
