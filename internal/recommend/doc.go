// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

/*
Package recommend turns the current cart contents into dashboard content.

A recommendation pass has two steps.

Next-item prediction: the four most recent item sets of the cart history,
left-padded with empty sets, are one-hot encoded against the item vocabulary
and sent to the sequence model together with the operator's season and
period. The model scores every item plus the "end" class at index 0. An
operator boost may add a fixed amount to one item's score. The highest score
wins, ties going to the lowest index.

Recipe resolution: recipes from the catalog are matched in three tiers and
the first non-empty tier is used:

 1. the cart plus the predicted item is contained in the recipe
 2. the cart is contained in the recipe
 3. the recipe is contained in the cart

With no match the welcome placeholder is shown. Every matched recipe reports
the required items missing from the cart, in recipe order.

The resulting contents are encoded into a display reference:

	<base_url>/display?contents=<key>&contents=<key>...

Identical contents always produce an identical reference, so a downstream
exact string compare detects real changes only.
*/
package recommend
