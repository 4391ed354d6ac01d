// Package authforms implements the sign-in and sign-up forms.
//
// A Service holds what every browser shares: the backend client, the
// validation schemas and the user-facing messages. Each client id gets a
// Controller carrying its own view (sign-in or sign-up) and the loading
// flags of both forms.
//
// Submissions follow one shape:
//
//  1. validate; field errors are returned without any network call
//  2. set the loading flag
//  3. call the backend
//  4. report the outcome through a toast
//  5. clear the loading flag, whatever happened
//
// The loading flag only tells the view to disable its inputs. It is not a
// lock: two submissions started together both reach the backend.
package authforms
