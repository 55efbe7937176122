package db

// Reverse relinks the chain back to front. Nothing is allocated or copied.
func (q *Queue) Reverse() {
	if q == nil || q.head == nil || q.head.next == nil {
		return
	}

	var prev *qNode
	node := q.head
	q.tail = node
	for node != nil {
		next := node.next
		node.next = prev
		prev = node
		node = next
	}
	q.head = prev
}

// Sort orders the queue ascending by byte-wise string comparison. The sort is
// a stable merge sort that relinks the existing nodes.
func (q *Queue) Sort() {
	if q == nil || q.head == nil || q.head.next == nil {
		return
	}

	q.head = mergeSort(q.head)

	tail := q.head
	for tail.next != nil {
		tail = tail.next
	}
	q.tail = tail
}

// mergeSort recurses once per halving, so its depth is logarithmic in the
// chain length.
func mergeSort(head *qNode) *qNode {
	if head == nil || head.next == nil {
		return head
	}

	slow, fast := head, head.next
	for fast != nil && fast.next != nil {
		slow = slow.next
		fast = fast.next.next
	}

	right := slow.next
	slow.next = nil

	return merge(mergeSort(head), mergeSort(right))
}

// merge splices two sorted chains. On equal values the left node goes first.
func merge(left, right *qNode) *qNode {
	var head qNode
	cur := &head
	for left != nil && right != nil {
		if right.value < left.value {
			cur.next = right
			right = right.next
		} else {
			cur.next = left
			left = left.next
		}
		cur = cur.next
	}

	if left != nil {
		cur.next = left
	} else {
		cur.next = right
	}

	return head.next
}
